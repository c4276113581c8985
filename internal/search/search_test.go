// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pdiddy/paperfetch/internal/httputil"
	"github.com/pdiddy/paperfetch/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

func testCfg() types.SearchConfig {
	return types.SearchConfig{
		HTTPConfig:          types.HTTPConfig{RequestTimeout: 5 * time.Second},
		PageSize:            10,
		MaxRateLimitRetries: 2,
	}
}

// scholarEntry renders one result container. pdf, when set, goes in the
// side-panel link; link goes in the heading.
func scholarEntry(title, link, pdf string) string {
	var b strings.Builder
	b.WriteString(`<div class="gs_r gs_or gs_scl">`)
	if pdf != "" {
		fmt.Fprintf(&b, `<div class="gs_ggs gs_fl"><div class="gs_ggsd"><a href="%s">[PDF] host</a></div></div>`, pdf)
	}
	if link != "" {
		fmt.Fprintf(&b, `<h3 class="gs_rt"><a href="%s">%s</a></h3>`, link, title)
	} else {
		fmt.Fprintf(&b, `<h3 class="gs_rt"><span>[CITATION]</span> %s</h3>`, title)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func scholarPage(entries ...string) string {
	return `<html><body><div id="gs_res_ccl_mid">` + strings.Join(entries, "") + `</div></body></html>`
}

func newScholarServer(t *testing.T, handler http.HandlerFunc) *Scholar {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	cfg := testCfg()
	cfg.BaseURL = ts.URL
	return NewScholar(ts.Client(), cfg, nil)
}

func TestScholarSearch_LimitTruncatesFirstPage(t *testing.T) {
	var requests atomic.Int32
	s := newScholarServer(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		q := r.URL.Query()
		if q.Get("q") != "transformer attention" || q.Get("start") != "0" || q.Get("hl") != "en" || q.Get("as_sdt") != "0,5" {
			t.Errorf("unexpected query params: %v", q)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing User-Agent")
		}
		fmt.Fprint(w, scholarPage(
			scholarEntry("Attention Is All You Need", "https://papers.example/abs/1", "https://papers.example/1.pdf"),
			scholarEntry("BERT", "https://papers.example/abs/2", ""),
			scholarEntry("GPT", "https://papers.example/abs/3", ""),
		))
	})

	results, err := s.Search(context.Background(), "transformer attention", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
	if results[0].CandidateURL != "https://papers.example/1.pdf" {
		t.Errorf("results[0].CandidateURL = %q, want side-panel PDF link", results[0].CandidateURL)
	}
	if results[0].Title != "Attention Is All You Need" {
		t.Errorf("results[0].Title = %q", results[0].Title)
	}
	if results[1].CandidateURL != "https://papers.example/abs/2" {
		t.Errorf("results[1].CandidateURL = %q, want heading link", results[1].CandidateURL)
	}
	if results[1].Source != "scholar" {
		t.Errorf("Source = %q, want scholar", results[1].Source)
	}
}

func TestScholarSearch_Paginates(t *testing.T) {
	var starts []string
	s := newScholarServer(t, func(w http.ResponseWriter, r *http.Request) {
		start := r.URL.Query().Get("start")
		starts = append(starts, start)
		switch start {
		case "0":
			fmt.Fprint(w, scholarPage(
				scholarEntry("A", "https://x/a", ""),
				scholarEntry("B", "https://x/b", ""),
			))
		case "10":
			fmt.Fprint(w, scholarPage(scholarEntry("C", "https://x/c", "")))
		default:
			fmt.Fprint(w, scholarPage())
		}
	})

	results, err := s.Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	if strings.Join(starts, ",") != "0,10,20" {
		t.Errorf("starts = %v, want 0,10,20", starts)
	}
}

func TestScholarSearch_SkipsTablesAndLinklessEntries(t *testing.T) {
	s := newScholarServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start") != "0" {
			fmt.Fprint(w, scholarPage())
			return
		}
		fmt.Fprint(w, scholarPage(
			`<div class="gs_r"><table><tr><td>Related searches</td></tr></table></div>`,
			scholarEntry("Citation only", "", ""),
			scholarEntry("Real", "https://x/real", ""),
		))
	})

	results, err := s.Search(context.Background(), "q", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Title != "Real" {
		t.Fatalf("results = %+v, want only Real", results)
	}
}

func TestScholarSearch_Captcha(t *testing.T) {
	s := newScholarServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start") == "0" {
			fmt.Fprint(w, scholarPage(scholarEntry("First", "https://x/1", "")))
			return
		}
		fmt.Fprint(w, `<html><body><form id="gs_captcha_f">Please show you're not a robot. CAPTCHA</form></body></html>`)
	})

	results, err := s.Search(context.Background(), "q", 5)
	if !errors.Is(err, ErrCaptcha) {
		t.Fatalf("err = %v, want ErrCaptcha", err)
	}
	if len(results) != 1 {
		t.Errorf("partial results = %d, want 1", len(results))
	}
}

func TestScholarSearch_Status(t *testing.T) {
	s := newScholarServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})

	_, err := s.Search(context.Background(), "q", 5)
	if !errors.Is(err, ErrStatus) {
		t.Fatalf("err = %v, want ErrStatus", err)
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("err = %v, want status code in message", err)
	}
}

func TestScholarSearch_ConnectionError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	cfg := testCfg()
	cfg.BaseURL = ts.URL
	ts.Close()

	s := NewScholar(&http.Client{Timeout: time.Second}, cfg, nil)
	_, err := s.Search(context.Background(), "q", 5)
	if !errors.Is(err, ErrConnection) {
		t.Fatalf("err = %v, want ErrConnection", err)
	}
}

func TestScholarSearch_RateLimitRetried(t *testing.T) {
	var calls atomic.Int32
	s := newScholarServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, scholarPage(scholarEntry("After wait", "https://x/1", "")))
	})

	results, err := s.Search(context.Background(), "q", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestScholarSearch_EmptyQuery(t *testing.T) {
	s := NewScholar(http.DefaultClient, testCfg(), nil)
	if _, err := s.Search(context.Background(), "   ", 5); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("err = %v, want ErrEmptyQuery", err)
	}
}

func TestPager_StopsWhenCancelled(t *testing.T) {
	p := pager{pageSize: 10, minDelay: time.Hour, maxDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := p.collect(ctx, 5, func(context.Context, int) ([]types.SearchResult, bool, error) {
		calls++
		return nil, true, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		backend string
		want    string
		wantErr bool
	}{
		{"", "scholar", false},
		{"scholar", "scholar", false},
		{"ArXiv", "arxiv", false},
		{"bing", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := testCfg()
			cfg.Backend = tt.backend
			b, err := New(cfg, http.DefaultClient, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if b.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", b.Name(), tt.want)
			}
		})
	}
}

func TestFormatTable(t *testing.T) {
	var buf bytes.Buffer
	FormatTable([]types.SearchResult{{Title: "A paper", CandidateURL: "https://x/a.pdf"}}, &buf)
	out := buf.String()
	if !strings.Contains(out, " 1. A paper") || !strings.Contains(out, "https://x/a.pdf") {
		t.Errorf("unexpected output:\n%s", out)
	}

	buf.Reset()
	FormatTable(nil, &buf)
	if !strings.Contains(buf.String(), "No results found.") {
		t.Errorf("unexpected empty output: %q", buf.String())
	}
}
