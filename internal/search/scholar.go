// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/pdiddy/paperfetch/internal/httputil"
	"github.com/pdiddy/paperfetch/internal/logging"
	"github.com/pdiddy/paperfetch/pkg/types"
)

// scholarBase is the Google Scholar results endpoint. Declared as a var so
// tests can substitute an httptest server.
var scholarBase = "https://scholar.google.com/scholar"

const defaultLimit = 10

// Scholar scrapes Google Scholar result pages.
type Scholar struct {
	client  *http.Client
	baseURL string
	retry   httputil.RetryPolicy
	pager   pager
	log     *zap.Logger
}

// NewScholar builds a Scholar backend. cfg.BaseURL overrides the endpoint.
func NewScholar(client *http.Client, cfg types.SearchConfig, log *zap.Logger) *Scholar {
	if client == nil {
		client = httputil.NewClient(httputil.ClientOptions{Timeout: cfg.RequestTimeout})
	}
	base := cfg.BaseURL
	if base == "" {
		base = scholarBase
	}
	log = logging.OrNop(log).Named("scholar")
	return &Scholar{
		client:  client,
		baseURL: base,
		retry: httputil.RetryPolicy{
			MaxRetries: cfg.MaxRateLimitRetries,
			Headers:    httputil.NewHeaderPool(nil, nil),
		},
		pager: newPager(cfg, log),
		log:   log,
	}
}

// Name returns the backend identifier.
func (s *Scholar) Name() string { return "scholar" }

// Search returns up to limit results for query, in source order.
func (s *Scholar) Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit < 1 {
		limit = defaultLimit
	}
	s.log.Info("searching", zap.String("query", query), zap.Int("limit", limit))

	results, err := s.pager.collect(ctx, limit, func(ctx context.Context, start int) ([]types.SearchResult, bool, error) {
		return s.page(ctx, query, start)
	})
	if err != nil {
		return results, fmt.Errorf("scholar search %q: %w", query, err)
	}
	return results, nil
}

func (s *Scholar) page(ctx context.Context, query string, start int) ([]types.SearchResult, bool, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("start", strconv.Itoa(start))
	params.Set("hl", "en")
	params.Set("as_sdt", "0,5")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}

	body, err := readPage(httputil.DoWithRetry(ctx, s.client, req, s.retry))
	if err != nil {
		return nil, false, err
	}
	return parseScholarPage(body)
}

// parseScholarPage extracts results from one page. Entries that embed a
// table, or that carry no link, are skipped. A page without any result
// container ends the search; it is a CAPTCHA when the body says so.
func parseScholarPage(body []byte) ([]types.SearchResult, bool, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("parsing results page: %w", err)
	}

	entries := doc.Find("div.gs_r")
	if entries.Length() == 0 {
		if bytes.Contains(bytes.ToLower(body), []byte("captcha")) {
			return nil, false, ErrCaptcha
		}
		return nil, false, nil
	}

	var results []types.SearchResult
	entries.Each(func(_ int, entry *goquery.Selection) {
		if entry.Find("table").Length() > 0 {
			return
		}
		heading := entry.Find("h3.gs_rt").First()
		link, ok := entry.Find("div.gs_ggs.gs_fl a").First().Attr("href")
		if !ok || strings.TrimSpace(link) == "" {
			link, ok = heading.Find("a").First().Attr("href")
		}
		link = strings.TrimSpace(link)
		if !ok || link == "" {
			return
		}
		results = append(results, types.SearchResult{
			Title:        strings.Join(strings.Fields(heading.Text()), " "),
			CandidateURL: link,
			Source:       "scholar",
		})
	})
	return results, true, nil
}
