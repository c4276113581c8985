// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/pdiddy/paperfetch/internal/httputil"
	"github.com/pdiddy/paperfetch/internal/logging"
	"github.com/pdiddy/paperfetch/internal/mirror"
)

// Base URLs for identifier rewriting. Declared as vars so tests can
// substitute httptest servers.
var (
	doiBase                = "https://doi.org/"
	scienceDirectAssetBase = "https://pdf.sciencedirectassets.com/article/"
	arxivPDFBase           = "https://arxiv.org/pdf/"
	springerPDFBase        = "https://link.springer.com/content/pdf/"
	pmcArticlesBase        = "https://www.ncbi.nlm.nih.gov/pmc/articles/"
)

// maxPageBytes limits the size of landing pages read into memory.
const maxPageBytes = 10 * 1024 * 1024

// htmlMarker is prepended to some search-result links.
const htmlMarker = "[HTML]"

// PublisherRule rewrites a recognized publisher URL into a predictable
// direct-asset URL, bypassing mirror lookup.
type PublisherRule interface {
	Name() string
	Rewrite(identifier string) (string, bool)
}

// LinkStrategy finds an embedded resource link in a mirror landing page.
// Strategies run in priority order; the first hit wins.
type LinkStrategy interface {
	Name() string
	Find(doc *goquery.Document, page []byte) (string, bool)
}

// Resolver turns a classified identifier into a URL believed to serve the PDF.
// Publishers and Strategies are ordered and may be replaced or extended.
type Resolver struct {
	Client     *http.Client
	Mirrors    *mirror.Registry
	Headers    *httputil.HeaderPool
	Publishers []PublisherRule
	Strategies []LinkStrategy
	Log        *zap.Logger
}

// NewResolver returns a Resolver with the default publisher rules and link strategies.
func NewResolver(client *http.Client, mirrors *mirror.Registry, headers *httputil.HeaderPool, log *zap.Logger) *Resolver {
	if headers == nil {
		headers = httputil.NewHeaderPool(nil, nil)
	}
	return &Resolver{
		Client:     client,
		Mirrors:    mirrors,
		Headers:    headers,
		Publishers: DefaultPublishers(),
		Strategies: DefaultStrategies(),
		Log:        logging.OrNop(log).Named("resolver"),
	}
}

// Resolve returns the candidate URL for id. An empty string with a nil error
// means no candidate was found. Errors are returned only for failures the
// caller may act on: an exhausted registry (mirror.ErrExhausted), an
// identifier that does not form a valid mirror URL, or a transport failure
// reaching the mirror.
func (r *Resolver) Resolve(ctx context.Context, id Identifier) (string, error) {
	if id.Type() == TypeDirectURL {
		return id.Raw(), nil
	}

	cleaned := strings.TrimSpace(strings.ReplaceAll(id.Raw(), htmlMarker, ""))
	if cleaned == "" {
		r.Log.Info("empty identifier")
		return "", nil
	}

	for _, p := range r.Publishers {
		if target, ok := p.Rewrite(cleaned); ok {
			r.Log.Debug("publisher override", zap.String("publisher", p.Name()), zap.String("url", target))
			return target, nil
		}
	}

	normalized := Normalize(cleaned, id.Type())

	m, err := r.Mirrors.Current()
	if err != nil {
		return "", err
	}

	page, status, err := r.landing(ctx, m.URL+"/"+normalized)
	if errors.Is(err, errMalformedURL) {
		return "", err
	}
	if err != nil {
		return "", fmt.Errorf("requesting mirror %s: %w", m.URL, err)
	}
	if status != http.StatusOK {
		r.Log.Info("mirror landing failed",
			zap.String("mirror", m.URL),
			zap.String("identifier", normalized),
			zap.Int("status", status),
		)
		return "", nil
	}
	r.Mirrors.MarkReachable()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", nil
	}

	for _, s := range r.Strategies {
		if link, ok := s.Find(doc, page); ok {
			target := Absolutize(link, m)
			r.Log.Debug("embedded link found", zap.String("strategy", s.Name()), zap.String("url", target))
			return target, nil
		}
	}

	r.Log.Info("no PDF URL found", zap.String("identifier", normalized), zap.String("mirror", m.URL))
	return "", nil
}

// landing GETs a mirror landing page and returns its body and status.
func (r *Resolver) landing(ctx context.Context, target string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errMalformedURL, err)
	}
	r.Headers.Apply(req)

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	page, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return page, resp.StatusCode, nil
}

// Normalize rewrites a cleaned identifier into the form submitted to a
// mirror: DOIs become doi.org URLs, schemeless domains get https://www.,
// and PubMed IDs and URLs pass through unchanged.
func Normalize(identifier string, typ IdentifierType) string {
	switch {
	case typ == TypeNumericID:
		return identifier
	case strings.HasPrefix(identifier, "10."):
		return doiBase + identifier
	case strings.HasPrefix(identifier, "http://"), strings.HasPrefix(identifier, "https://"):
		return identifier
	case strings.HasPrefix(identifier, "www."):
		return "https://" + identifier
	default:
		return "https://www." + identifier
	}
}

// Absolutize rewrites a link found on a mirror page into an absolute URL
// using the mirror's network location.
func Absolutize(link string, m mirror.Mirror) string {
	link = strings.TrimSpace(link)
	switch {
	case strings.HasPrefix(link, "//"):
		return "https:" + link
	case strings.HasPrefix(link, "/"):
		return m.Host() + link
	case strings.HasPrefix(link, "http"):
		return link
	default:
		return m.Host() + "/" + link
	}
}

// --- link strategies ---

type attrStrategy struct {
	name     string
	selector string
	attr     string
}

func (s attrStrategy) Name() string { return s.name }

func (s attrStrategy) Find(doc *goquery.Document, _ []byte) (string, bool) {
	v, ok := doc.Find(s.selector).First().Attr(s.attr)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

type regexStrategy struct {
	name string
	re   *regexp.Regexp
}

func (s regexStrategy) Name() string { return s.name }

func (s regexStrategy) Find(_ *goquery.Document, page []byte) (string, bool) {
	m := s.re.FindSubmatch(page)
	if m == nil || len(bytes.TrimSpace(m[1])) == 0 {
		return "", false
	}
	return string(m[1]), true
}

// DefaultStrategies returns the link strategies in priority order: inline
// frame, embedded object, then regular-expression fallbacks for common
// embedding idioms.
func DefaultStrategies() []LinkStrategy {
	return []LinkStrategy{
		attrStrategy{name: "iframe", selector: "iframe", attr: "src"},
		attrStrategy{name: "embed", selector: "embed", attr: "src"},
		regexStrategy{name: "iframe-regex", re: regexp.MustCompile(`iframe src="(.*?)"`)},
		regexStrategy{name: "location-href", re: regexp.MustCompile(`location.href='(.*?)'`)},
		regexStrategy{name: "pdf-url-var", re: regexp.MustCompile(`pdf_url\s*=\s*['"]([^'"]+)['"]`)},
		regexStrategy{name: "embed-regex", re: regexp.MustCompile(`<embed src="(.*?)"`)},
	}
}

// --- publisher rules ---

type patternRule struct {
	name    string
	pattern *regexp.Regexp
	build   func(match []string) string
}

func (p patternRule) Name() string { return p.name }

func (p patternRule) Rewrite(identifier string) (string, bool) {
	m := p.pattern.FindStringSubmatch(identifier)
	if m == nil {
		return "", false
	}
	return p.build(m), true
}

// DefaultPublishers returns the built-in publisher rules.
func DefaultPublishers() []PublisherRule {
	return []PublisherRule{
		patternRule{
			name:    "sciencedirect",
			pattern: regexp.MustCompile(`sciencedirect\.com/.*/([^/?#]+)(?:[?#].*)?$`),
			build:   func(m []string) string { return scienceDirectAssetBase + m[1] + "/pdf" },
		},
		patternRule{
			name:    "arxiv",
			pattern: regexp.MustCompile(`arxiv\.org/abs/([^?#]+?)/?(?:[?#].*)?$`),
			build:   func(m []string) string { return arxivPDFBase + m[1] + ".pdf" },
		},
		patternRule{
			name:    "springer",
			pattern: regexp.MustCompile(`link\.springer\.com/article/(10\.[^?#]+?)/?(?:[?#].*)?$`),
			build:   func(m []string) string { return springerPDFBase + m[1] + ".pdf" },
		},
		patternRule{
			name:    "pmc",
			pattern: regexp.MustCompile(`ncbi\.nlm\.nih\.gov/pmc/articles/(PMC\d+)`),
			build:   func(m []string) string { return pmcArticlesBase + m[1] + "/pdf/" },
		},
	}
}
