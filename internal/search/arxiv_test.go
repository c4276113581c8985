// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

const sampleArxivSearchXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/1706.03762v1</id>
    <title>Attention Is All
      You Need</title>
    <published>2017-06-12T17:57:34Z</published>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/1810.04805v2</id>
    <title>BERT: Pre-training of Deep Bidirectional Transformers</title>
  </entry>
  <entry>
    <id>malformed</id>
    <title>Skipped</title>
  </entry>
</feed>`

func TestArxivSearch(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprint(w, sampleArxivSearchXML)
	}))
	defer ts.Close()

	cfg := testCfg()
	cfg.BaseURL = ts.URL
	b := NewArxiv(ts.Client(), cfg, nil)

	results, err := b.Search(context.Background(), "attention mechanisms", 10)
	if err != nil {
		t.Fatalf("Arxiv.Search: %v", err)
	}
	if gotQuery != "all:attention AND all:mechanisms" {
		t.Errorf("search_query = %q", gotQuery)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}

	r := results[0]
	if r.Title != "Attention Is All You Need" {
		t.Errorf("Title = %q", r.Title)
	}
	if r.CandidateURL != "https://arxiv.org/pdf/1706.03762.pdf" {
		t.Errorf("CandidateURL = %q", r.CandidateURL)
	}
	if r.Source != "arxiv" {
		t.Errorf("Source = %q, want arxiv", r.Source)
	}
}

func TestArxivSearch_BooleanQuery(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		fmt.Fprint(w, sampleArxivSearchXML)
	}))
	defer ts.Close()

	cfg := testCfg()
	cfg.BaseURL = ts.URL
	_, err := NewArxiv(ts.Client(), cfg, nil).Search(context.Background(), `"machine learning" AND healthcare`, 5)
	if err != nil {
		t.Fatalf("Arxiv.Search: %v", err)
	}
	if want := `all:"machine learning" AND all:healthcare`; gotQuery != want {
		t.Errorf("search_query = %q, want %q", gotQuery, want)
	}
}

func TestArxivSearch_Limit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleArxivSearchXML)
	}))
	defer ts.Close()

	cfg := testCfg()
	cfg.BaseURL = ts.URL
	results, err := NewArxiv(ts.Client(), cfg, nil).Search(context.Background(), "bert", 1)
	if err != nil {
		t.Fatalf("Arxiv.Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
}

func TestExtractArxivID(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"http://arxiv.org/abs/2301.07041v1", "2301.07041"},
		{"http://arxiv.org/abs/1706.03762v5", "1706.03762"},
		{"http://arxiv.org/abs/2301.12345", "2301.12345"},
		{"https://arxiv.org/abs/2301.07041v2", "2301.07041"},
		{"not a url", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := extractArxivID(tt.input); got != tt.want {
				t.Errorf("extractArxivID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestBuildArxivQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"attention", "all:attention"},
		{"  deep   learning ", "all:deep AND all:learning"},
		{"", ""},
		{`"machine learning" AND healthcare`, `all:"machine learning" AND all:healthcare`},
		{`"deep  learning" OR "neural networks"`, `all:"deep learning" OR all:"neural networks"`},
		{`(transformer OR attention) AND NOT survey`, `(all:transformer OR all:attention) ANDNOT all:survey`},
		{`vision ANDNOT "image generation"`, `all:vision ANDNOT all:"image generation"`},
		{`AND retrieval OR`, `all:retrieval`},
		{`graph (neural OR`, `all:graph AND (all:neural)`},
		{`(unclosed "deep learning`, `(all:unclosed AND all:"deep learning")`},
		{`stray ) paren`, `all:stray AND all:paren`},
		{`empty () group`, `all:empty AND all:group`},
		{`"" AND ""`, ``},
	}
	for _, tt := range tests {
		if got := buildArxivQuery(tt.in); got != tt.want {
			t.Errorf("buildArxivQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
