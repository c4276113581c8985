// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/paperfetch/internal/httputil"
	"github.com/pdiddy/paperfetch/internal/logging"
	"github.com/pdiddy/paperfetch/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint and arxivPDFBase the prefix of
// direct PDF links. Declared as vars so tests can substitute a server.
var (
	arxivAPIBase = "https://export.arxiv.org/api/query"
	arxivPDFBase = "https://arxiv.org/pdf/"
)

// Arxiv queries the arXiv Atom API. Its candidates are direct PDF links, so
// the fetcher retrieves them without a mirror.
type Arxiv struct {
	client  *http.Client
	baseURL string
	retry   httputil.RetryPolicy
	pager   pager
	log     *zap.Logger
}

// NewArxiv builds an arXiv backend. cfg.BaseURL overrides the endpoint.
func NewArxiv(client *http.Client, cfg types.SearchConfig, log *zap.Logger) *Arxiv {
	if client == nil {
		client = httputil.NewClient(httputil.ClientOptions{Timeout: cfg.RequestTimeout})
	}
	base := cfg.BaseURL
	if base == "" {
		base = arxivAPIBase
	}
	log = logging.OrNop(log).Named("arxiv")
	return &Arxiv{
		client:  client,
		baseURL: base,
		retry:   httputil.RetryPolicy{MaxRetries: cfg.MaxRateLimitRetries},
		pager:   newPager(cfg, log),
		log:     log,
	}
}

// Name returns the backend identifier.
func (b *Arxiv) Name() string { return "arxiv" }

// Search returns up to limit results ordered by arXiv relevance.
func (b *Arxiv) Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	q := buildArxivQuery(query)
	if q == "" {
		return nil, ErrEmptyQuery
	}
	if limit < 1 {
		limit = defaultLimit
	}
	b.log.Info("searching", zap.String("query", query), zap.Int("limit", limit))

	results, err := b.pager.collect(ctx, limit, func(ctx context.Context, start int) ([]types.SearchResult, bool, error) {
		return b.page(ctx, q, start)
	})
	if err != nil {
		return results, fmt.Errorf("arxiv search %q: %w", query, err)
	}
	return results, nil
}

func (b *Arxiv) page(ctx context.Context, q string, start int) ([]types.SearchResult, bool, error) {
	params := url.Values{}
	params.Set("search_query", q)
	params.Set("start", strconv.Itoa(start))
	params.Set("max_results", strconv.Itoa(b.pager.pageSize))
	params.Set("sortBy", "relevance")
	params.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}

	body, err := readPage(httputil.DoWithRetry(ctx, b.client, req, b.retry))
	if err != nil {
		return nil, false, err
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, false, fmt.Errorf("parsing arXiv response: %w", err)
	}

	var results []types.SearchResult
	for _, entry := range feed.Entries {
		id := extractArxivID(entry.ID)
		if id == "" {
			continue
		}
		results = append(results, types.SearchResult{
			Title:        strings.Join(strings.Fields(entry.Title), " "),
			CandidateURL: arxivPDFBase + id + ".pdf",
			Source:       "arxiv",
		})
	}
	return results, len(feed.Entries) >= b.pager.pageSize, nil
}

// arxivOperators maps boolean operators in a query to arXiv's syntax.
// Operators are recognized only in upper case, as Scholar does.
var arxivOperators = map[string]string{
	"AND":    "AND",
	"OR":     "OR",
	"NOT":    "ANDNOT",
	"ANDNOT": "ANDNOT",
}

// buildArxivQuery rewrites a Scholar-style boolean query into arXiv's
// search_query syntax. Terms and quoted phrases get the all: prefix,
// operators and parentheses pass through, and adjacent terms are joined
// with AND. Dangling operators and unbalanced parentheses are repaired.
func buildArxivQuery(query string) string {
	var out []string
	depth := 0
	endsWithTerm := func() bool {
		n := len(out)
		return n > 0 && out[n-1] != "(" && !isArxivOperator(out[n-1])
	}
	trimOperator := func() {
		if n := len(out); n > 0 && isArxivOperator(out[n-1]) {
			out = out[:n-1]
		}
	}
	closeGroup := func() {
		trimOperator()
		if n := len(out); n > 0 && out[n-1] == "(" {
			out = out[:n-1]
			trimOperator()
		} else {
			out = append(out, ")")
		}
		depth--
	}

	for _, tok := range tokenizeQuery(query) {
		switch {
		case tok == "(":
			if endsWithTerm() {
				out = append(out, "AND")
			}
			out = append(out, tok)
			depth++
		case tok == ")":
			if depth > 0 {
				closeGroup()
			}
		case arxivOperators[tok] != "":
			op := arxivOperators[tok]
			switch n := len(out); {
			case endsWithTerm():
				out = append(out, op)
			case op == "ANDNOT" && n > 0 && out[n-1] == "AND":
				out[n-1] = op
			}
		default:
			if endsWithTerm() {
				out = append(out, "AND")
			}
			out = append(out, "all:"+tok)
		}
	}
	for depth > 0 {
		closeGroup()
	}
	trimOperator()

	var b strings.Builder
	for i, tok := range out {
		if i > 0 && tok != ")" && out[i-1] != "(" {
			b.WriteByte(' ')
		}
		b.WriteString(tok)
	}
	return b.String()
}

func isArxivOperator(tok string) bool {
	return tok == "AND" || tok == "OR" || tok == "ANDNOT"
}

// tokenizeQuery splits a query into words, quoted phrases (quotes kept),
// and parentheses. An unterminated quote runs to the end of the query.
func tokenizeQuery(query string) []string {
	var toks []string
	for i := 0; i < len(query); {
		switch c := query[i]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(' || c == ')':
			toks = append(toks, string(c))
			i++
		case c == '"':
			end := strings.IndexByte(query[i+1:], '"')
			var phrase string
			if end < 0 {
				phrase, i = query[i+1:], len(query)
			} else {
				phrase, i = query[i+1:i+1+end], i+end+2
			}
			if phrase = strings.Join(strings.Fields(phrase), " "); phrase != "" {
				toks = append(toks, `"`+phrase+`"`)
			}
		default:
			j := i
			for j < len(query) && !strings.ContainsRune(" \t\n\r()\"", rune(query[j])) {
				j++
			}
			toks = append(toks, query[i:j])
			i = j
		}
	}
	return toks
}

type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID    string `xml:"id"`
	Title string `xml:"title"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" becomes "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
