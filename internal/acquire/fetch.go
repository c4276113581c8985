// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bytes"
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paperfetch/internal/httputil"
	"github.com/pdiddy/paperfetch/internal/logging"
	"github.com/pdiddy/paperfetch/internal/mirror"
	"github.com/pdiddy/paperfetch/pkg/types"
)

const (
	defaultMaxAttempts = 3
	nameTailLen        = 20
)

// maxPDFBytes caps a downloaded body. A var so tests can lower it.
var maxPDFBytes int64 = 256 * 1024 * 1024

// pdfSignature is the magic prefix every PDF body must start with.
var pdfSignature = []byte("%PDF-")

// captchaMarker is matched case-insensitively against non-PDF bodies.
var captchaMarker = []byte("captcha")

var viewFragment = regexp.MustCompile(`#view=(.+)`)

// Document is a successfully fetched PDF.
type Document struct {
	// Identifier is the identifier that was requested.
	Identifier string
	// Body is the PDF content.
	Body []byte
	// SourceURL is the resolved URL the body was requested from.
	SourceURL string
	// Name is the content-addressed file name stem.
	Name string
	// Path is set by Download to the file written on disk.
	Path string
}

// retryState lives for the duration of one Fetch call.
type retryState struct {
	attempt     int
	budget      int
	captchaSeen bool
	lastErr     error
	mirror      string
	proxyIndex  int
}

// Fetcher resolves identifiers and retrieves PDFs, rotating mirrors and
// proxies on failure. It owns the header policy; the mirror registry and
// proxy rotator are shared with whoever constructed it.
type Fetcher struct {
	client   *http.Client
	resolver *Resolver
	mirrors  *mirror.Registry
	proxies  *httputil.ProxyRotator
	headers  *httputil.HeaderPool
	cfg      types.FetcherConfig
	log      *zap.Logger
}

// NewFetcher builds a Fetcher whose HTTP client routes through proxies and
// skips TLS verification.
func NewFetcher(cfg types.FetcherConfig, mirrors *mirror.Registry, proxies *httputil.ProxyRotator, log *zap.Logger) *Fetcher {
	client := httputil.NewClient(httputil.ClientOptions{
		Timeout:     cfg.RequestTimeout,
		Proxies:     proxies,
		InsecureTLS: true,
	})
	return NewFetcherWithClient(client, cfg, mirrors, proxies, log)
}

// NewFetcherWithClient builds a Fetcher around an existing client.
func NewFetcherWithClient(client *http.Client, cfg types.FetcherConfig, mirrors *mirror.Registry, proxies *httputil.ProxyRotator, log *zap.Logger) *Fetcher {
	log = logging.OrNop(log)
	headers := httputil.NewHeaderPool(nil, nil)
	return &Fetcher{
		client:   client,
		resolver: NewResolver(client, mirrors, headers, log),
		mirrors:  mirrors,
		proxies:  proxies,
		headers:  headers,
		cfg:      cfg,
		log:      log.Named("fetcher"),
	}
}

// Resolver exposes the resolver so callers can adjust its strategy lists.
func (f *Fetcher) Resolver() *Resolver { return f.resolver }

// Mirrors returns the registry the fetcher drops mirrors from.
func (f *Fetcher) Mirrors() *mirror.Registry { return f.mirrors }

// Fetch resolves identifier and retrieves the PDF it names. Every failure is
// returned as a *Failure.
func (f *Fetcher) Fetch(ctx context.Context, identifier string) (*Document, error) {
	id := NewIdentifier(identifier)
	budget := f.cfg.MaxAttempts
	if budget < 1 {
		budget = defaultMaxAttempts
	}
	log := f.log.With(zap.String("identifier", identifier), zap.Stringer("type", id.Type()))

	st := retryState{budget: budget}
	for st.attempt = 0; st.attempt < budget; st.attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, f.fail(ErrNetwork, id, st, err)
		}
		if m, err := f.mirrors.Current(); err == nil {
			st.mirror = m.URL
		}
		st.proxyIndex = f.proxies.Index()

		target, err := f.resolver.Resolve(ctx, id)
		if errors.Is(err, mirror.ErrExhausted) {
			return nil, f.fail(ErrMirrorsExhausted, id, st, err)
		}
		if errors.Is(err, errMalformedURL) {
			return nil, f.fail(ErrNotFound, id, st, err)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, f.fail(ErrNetwork, id, st, ctx.Err())
			}
			log.Info("cannot access mirror, changing mirror", zap.String("mirror", st.mirror), zap.Error(err))
			st.lastErr = err
			if dropErr := f.mirrors.DropCurrent(); dropErr != nil {
				return nil, f.fail(ErrMirrorsExhausted, id, st, err)
			}
			continue
		}
		if target == "" {
			return nil, f.fail(ErrNotFound, id, st, nil)
		}

		resp, err := f.get(ctx, target)
		switch {
		case errors.Is(err, errMalformedURL):
			return nil, f.fail(ErrNotFound, id, st, err)
		case errors.Is(err, errTooLarge):
			return nil, f.fail(ErrNotAPDF, id, st, err)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, f.fail(ErrNetwork, id, st, ctx.Err())
			}
			log.Info("request failed, changing mirror", zap.String("url", target), zap.Error(err))
			st.lastErr = err
			if dropErr := f.mirrors.DropCurrent(); dropErr != nil {
				return nil, f.fail(ErrMirrorsExhausted, id, st, err)
			}
			continue
		}

		if isPDFContentType(resp.contentType) {
			if !HasPDFSignature(resp.body) {
				return nil, f.fail(ErrNotAPDF, id, st,
					fmt.Errorf("body from %s does not start with the PDF signature", target))
			}
			return &Document{
				Identifier: identifier,
				Body:       resp.body,
				SourceURL:  target,
				Name:       DeriveName(resp.body, resp.finalURL),
			}, nil
		}

		if !containsCaptcha(resp.body) {
			return nil, f.fail(ErrNotAPDF, id, st,
				fmt.Errorf("response is not a PDF (Content-Type: %q)", resp.contentType))
		}

		st.captchaSeen = true
		proxy := f.proxies.Rotate()
		log.Info("encountered CAPTCHA",
			zap.Int("attempt", st.attempt+1),
			zap.Int("max_attempts", budget),
			zap.String("proxy", proxyLabel(proxy)),
		)
		if st.attempt == budget-1 {
			continue
		}
		if dropErr := f.mirrors.DropCurrent(); dropErr != nil {
			return nil, f.fail(ErrMirrorsExhausted, id, st, dropErr)
		}
		wait := f.backoff(st.attempt)
		log.Info("waiting before retrying", zap.Duration("wait", wait))
		if err := httputil.Sleep(ctx, wait); err != nil {
			return nil, f.fail(ErrNetwork, id, st, err)
		}
	}

	if st.captchaSeen {
		return nil, f.fail(ErrCaptchaBlocked, id, st, nil)
	}
	return nil, f.fail(ErrNetwork, id, st, st.lastErr)
}

// backoff returns RetryDelay·2^attempt, never less than CaptchaWait and
// never more than MaxBackoff (when set).
func (f *Fetcher) backoff(attempt int) time.Duration {
	ceiling := f.cfg.MaxBackoff
	if ceiling <= 0 {
		ceiling = time.Duration(math.MaxInt64)
	}
	d := max(httputil.Backoff(f.cfg.RetryDelay, attempt, ceiling), f.cfg.CaptchaWait)
	return min(d, ceiling)
}

func (f *Fetcher) fail(reason error, id Identifier, st retryState, cause error) *Failure {
	attempts := min(st.attempt+1, st.budget)
	f.log.Debug("fetch failed",
		zap.String("identifier", id.Raw()),
		zap.String("reason", ReasonCode(reason)),
		zap.String("mirror", st.mirror),
		zap.Int("proxy_index", st.proxyIndex),
		zap.Error(cause),
	)
	return &Failure{Reason: reason, Identifier: id.Raw(), Attempts: attempts, Err: cause}
}

func proxyLabel(u *url.URL) string {
	if u == nil {
		return "direct"
	}
	return u.Redacted()
}

type response struct {
	body        []byte
	contentType string
	finalURL    string
}

// get performs one GET with a fresh simulated identity and reads the body.
func (f *Fetcher) get(ctx context.Context, target string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedURL, err)
	}
	f.headers.Apply(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPDFBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading body from %s: %w", target, err)
	}
	if int64(len(body)) > maxPDFBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", errTooLarge, target, maxPDFBytes)
	}
	return &response{
		body:        body,
		contentType: resp.Header.Get("Content-Type"),
		finalURL:    resp.Request.URL.String(),
	}, nil
}

// HasPDFSignature reports whether body starts with "%PDF-".
func HasPDFSignature(body []byte) bool {
	return bytes.HasPrefix(body, pdfSignature)
}

func isPDFContentType(ct string) bool {
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(ct, ";", 2)[0]))
	}
	return mediaType == "application/pdf" || mediaType == "application/x-pdf"
}

func containsCaptcha(body []byte) bool {
	return bytes.Contains(bytes.ToLower(body), captchaMarker)
}

// DeriveName returns the content-addressed name for a PDF: the MD5 of the
// body followed by the last 20 characters of the URL's final path segment.
func DeriveName(body []byte, sourceURL string) string {
	name := sourceURL[strings.LastIndex(sourceURL, "/")+1:]
	name = viewFragment.ReplaceAllString(name, "")
	if len(name) > nameTailLen {
		name = name[len(name)-nameTailLen:]
	}
	return fmt.Sprintf("%x-%s", md5.Sum(body), name)
}
