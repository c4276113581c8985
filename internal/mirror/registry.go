// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mirror keeps the ordered list of mirror base URLs the fetcher
// tries in turn. The head of the list is the current mirror; failed mirrors
// are dropped from the head, marked exhausted, and never re-inserted.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/pdiddy/paperfetch/internal/logging"
)

// ErrExhausted is returned when no live mirror remains.
var ErrExhausted = errors.New("mirrors exhausted")

// ErrDiscovery is returned when Refresh cannot produce a new mirror list.
// The registry keeps its previous contents.
var ErrDiscovery = errors.New("mirror discovery failed")

// Status is the liveness of a mirror.
type Status int

const (
	StatusUnknown Status = iota
	StatusReachable
	StatusExhausted
)

func (s Status) String() string {
	switch s {
	case StatusReachable:
		return "reachable"
	case StatusExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Mirror is one interchangeable base URL for the source site.
type Mirror struct {
	URL    string
	Status Status
}

// Host returns the mirror's scheme and host, e.g. "https://sci-hub.se".
func (m Mirror) Host() string {
	u, err := url.Parse(m.URL)
	if err != nil || u.Host == "" {
		return m.URL
	}
	return u.Scheme + "://" + u.Host
}

// Registry is the ordered mirror list.
type Registry struct {
	mu           sync.Mutex
	mirrors      []Mirror
	dropped      []Mirror
	client       *http.Client
	directoryURL string
	marker       string
	log          *zap.Logger
}

// Options configures NewRegistry.
type Options struct {
	// Client performs directory discovery. Defaults to http.DefaultClient.
	Client *http.Client

	// DirectoryURL is the page listing mirrors.
	DirectoryURL string

	// Marker is the substring an anchor href must contain to be a mirror.
	Marker string

	// Seed is the initial mirror list, in trial order.
	Seed []string

	Log *zap.Logger
}

// NewRegistry creates a registry seeded with opts.Seed.
func NewRegistry(opts Options) *Registry {
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	r := &Registry{
		client:       client,
		directoryURL: opts.DirectoryURL,
		marker:       opts.Marker,
		log:          logging.OrNop(opts.Log).Named("mirror"),
	}
	r.mirrors = toMirrors(opts.Seed)
	return r
}

// Current returns the head mirror.
func (r *Registry) Current() (Mirror, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.mirrors) == 0 {
		return Mirror{}, ErrExhausted
	}
	return r.mirrors[0], nil
}

// DropCurrent removes the head mirror. It returns ErrExhausted when the
// registry was already empty or has just become empty.
func (r *Registry) DropCurrent() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.mirrors) == 0 {
		return ErrExhausted
	}
	dropped := r.mirrors[0]
	dropped.Status = StatusExhausted
	r.dropped = append(r.dropped, dropped)
	r.mirrors = r.mirrors[1:]
	if len(r.mirrors) == 0 {
		r.log.Warn("dropped last mirror", zap.String("mirror", dropped.URL))
		return ErrExhausted
	}
	r.log.Info("changing mirror",
		zap.String("dropped", dropped.URL),
		zap.String("current", r.mirrors[0].URL),
		zap.Int("remaining", len(r.mirrors)),
	)
	return nil
}

// MarkReachable records that the head mirror answered a landing request.
func (r *Registry) MarkReachable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.mirrors) > 0 {
		r.mirrors[0].Status = StatusReachable
	}
}

// Mirrors returns a copy of the list in trial order.
func (r *Registry) Mirrors() []Mirror {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Mirror, len(r.mirrors))
	copy(out, r.mirrors)
	return out
}

// Dropped returns the mirrors dropped since the last successful Refresh, in
// drop order. Each has StatusExhausted.
func (r *Registry) Dropped() []Mirror {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Mirror, len(r.dropped))
	copy(out, r.dropped)
	return out
}

// Len returns the number of live mirrors.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.mirrors)
}

// Refresh re-discovers the mirror list from the directory page and replaces
// the registry contents. On any failure the previous list is kept.
func (r *Registry) Refresh(ctx context.Context) error {
	if r.directoryURL == "" {
		return fmt.Errorf("%w: no directory URL configured", ErrDiscovery)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.directoryURL, nil)
	if err != nil {
		return fmt.Errorf("%w: creating request: %v", ErrDiscovery, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: requesting %s: %v", ErrDiscovery, r.directoryURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d from %s", ErrDiscovery, resp.StatusCode, r.directoryURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: parsing directory page: %v", ErrDiscovery, err)
	}

	urls := discover(doc, r.marker)
	if len(urls) == 0 {
		return fmt.Errorf("%w: no mirrors listed at %s", ErrDiscovery, r.directoryURL)
	}

	r.mu.Lock()
	r.mirrors = toMirrors(urls)
	r.dropped = nil
	r.mu.Unlock()

	r.log.Info("mirror list refreshed", zap.Int("count", len(urls)), zap.String("current", urls[0]))
	return nil
}

// discover collects absolute anchor hrefs containing marker, in page order.
func discover(doc *goquery.Document, marker string) []string {
	var urls []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if marker != "" && !strings.Contains(href, marker) {
			return
		}
		u, err := url.Parse(href)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return
		}
		urls = append(urls, href)
	})
	return urls
}

// toMirrors normalizes raw URLs and drops blanks and duplicates.
func toMirrors(raw []string) []Mirror {
	seen := make(map[string]bool, len(raw))
	var out []Mirror
	for _, u := range raw {
		u = strings.TrimRight(strings.TrimSpace(u), "/")
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, Mirror{URL: u, Status: StatusUnknown})
	}
	return out
}
