// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries a scholarly search source and returns candidate
// documents for a free-text query. Backends share a pager that spaces page
// requests with a randomized delay and stops at the requested limit.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paperfetch/internal/httputil"
	"github.com/pdiddy/paperfetch/internal/logging"
	"github.com/pdiddy/paperfetch/pkg/types"
)

// Search failures. Results gathered before the failure are returned
// alongside the error.
var (
	ErrEmptyQuery = errors.New("query is empty")
	// ErrCaptcha: the source answered with a bot challenge instead of results.
	ErrCaptcha = errors.New("search blocked by captcha")
	// ErrConnection: the request failed at the transport level. Not retried.
	ErrConnection = errors.New("search connection error")
	// ErrStatus: the source answered with a non-200 status.
	ErrStatus = errors.New("unexpected search status")
)

// Backend searches a single source. Each backend (Google Scholar, arXiv)
// implements this interface.
type Backend interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error)
}

// New returns the backend selected by cfg.Backend.
func New(cfg types.SearchConfig, client *http.Client, log *zap.Logger) (Backend, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "scholar":
		return NewScholar(client, cfg, log), nil
	case "arxiv":
		return NewArxiv(client, cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown search backend %q (want scholar or arxiv)", cfg.Backend)
	}
}

// pageFunc fetches the page starting at offset start. more is false once the
// source has no further results.
type pageFunc func(ctx context.Context, start int) (results []types.SearchResult, more bool, err error)

// pager walks result pages until a limit is reached.
type pager struct {
	pageSize int
	minDelay time.Duration
	maxDelay time.Duration
	log      *zap.Logger
}

func newPager(cfg types.SearchConfig, log *zap.Logger) pager {
	size := cfg.PageSize
	if size < 1 {
		size = 10
	}
	return pager{
		pageSize: size,
		minDelay: cfg.MinDelay,
		maxDelay: cfg.MaxDelay,
		log:      logging.OrNop(log),
	}
}

// collect calls fetch for successive pages, sleeping a random delay in
// [minDelay, maxDelay] before each one. It never returns more than limit
// results.
func (p pager) collect(ctx context.Context, limit int, fetch pageFunc) ([]types.SearchResult, error) {
	var out []types.SearchResult
	for start := 0; len(out) < limit; start += p.pageSize {
		if err := httputil.Sleep(ctx, httputil.Jitter(p.minDelay, p.maxDelay)); err != nil {
			return out, err
		}
		page, more, err := fetch(ctx, start)
		out = append(out, page...)
		if err != nil {
			return truncate(out, limit), err
		}
		p.log.Debug("search page", zap.Int("start", start), zap.Int("results", len(page)))
		if !more {
			break
		}
	}
	return truncate(out, limit), nil
}

func truncate(results []types.SearchResult, limit int) []types.SearchResult {
	if len(results) > limit {
		return results[:limit]
	}
	return results
}

// readPage drains a search response. Transport errors become ErrConnection
// and non-200 statuses ErrStatus.
func readPage(resp *http.Response, err error) ([]byte, error) {
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrConnection, err)
	}
	if resp.StatusCode != http.StatusOK {
		return body, fmt.Errorf("%w: HTTP %d", ErrStatus, resp.StatusCode)
	}
	return body, nil
}

const maxPageBytes = 10 * 1024 * 1024

// FormatTable writes results as a numbered list to w.
func FormatTable(results []types.SearchResult, w io.Writer) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}
	for i, r := range results {
		title := r.Title
		if len(title) > 80 {
			title = title[:77] + "..."
		}
		fmt.Fprintf(w, "%2d. %s\n    %s\n", i+1, title, r.CandidateURL)
	}
	fmt.Fprintf(w, "\n%d results\n", len(results))
}
