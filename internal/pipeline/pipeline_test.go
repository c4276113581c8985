// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperfetch/internal/acquire"
	"github.com/pdiddy/paperfetch/internal/search"
	"github.com/pdiddy/paperfetch/pkg/types"
)

type fakeSearcher struct {
	queries []string
	limits  []int
	errs    map[string]error
	empty   map[string]bool
}

func (s *fakeSearcher) Search(_ context.Context, query string, limit int) ([]types.SearchResult, error) {
	s.queries = append(s.queries, query)
	s.limits = append(s.limits, limit)
	if err := s.errs[query]; err != nil {
		return nil, err
	}
	if s.empty[query] {
		return nil, nil
	}
	return []types.SearchResult{{Title: "Paper for " + query, CandidateURL: "https://x/" + query + ".pdf"}}, nil
}

type fakeDownloader struct {
	calls []string
	fail  map[string]error
}

func (d *fakeDownloader) Download(_ context.Context, id, destDir string) (*acquire.Document, error) {
	d.calls = append(d.calls, id)
	if err := d.fail[id]; err != nil {
		return nil, err
	}
	return &acquire.Document{Identifier: id, SourceURL: id, Path: filepath.Join(destDir, filepath.Base(id))}, nil
}

type fakeRecorder struct{ papers []types.AcquiredPaper }

func (r *fakeRecorder) Record(_ context.Context, p types.AcquiredPaper) error {
	r.papers = append(r.papers, p)
	return nil
}

func testConfig() types.AcquisitionConfig {
	return types.AcquisitionConfig{PerQueryLimit: 1, OutputDir: "out"}
}

func TestAcquire_StopsAtQuota(t *testing.T) {
	s := &fakeSearcher{}
	d := &fakeDownloader{}
	o := New(Options{Searcher: s, Downloader: d, Config: testConfig()})

	report := o.Acquire(context.Background(), []string{"q1", "q2", "q3", "q4", "q5"}, 2)

	assert.Equal(t, []string{"q1", "q2"}, s.queries, "no searches after the quota is met")
	assert.Equal(t, []int{1, 1}, s.limits)
	assert.Equal(t, []string{filepath.Join("out", "q1.pdf"), filepath.Join("out", "q2.pdf")}, report.Paths)
	assert.Empty(t, report.Failures)
	assert.True(t, report.Succeeded())
	assert.NotEmpty(t, report.RunID)
}

func TestAcquire_AccumulatesFailures(t *testing.T) {
	s := &fakeSearcher{
		errs: map[string]error{
			"blocked": fmt.Errorf("scholar search %q: %w", "blocked", search.ErrCaptcha),
			"offline": fmt.Errorf("wrapped: %w", search.ErrConnection),
		},
		empty: map[string]bool{"nothing": true},
	}
	d := &fakeDownloader{fail: map[string]error{
		"https://x/paywalled.pdf": &acquire.Failure{Reason: acquire.ErrNotAPDF, Identifier: "https://x/paywalled.pdf", Attempts: 1},
	}}
	rec := &fakeRecorder{}
	var out bytes.Buffer
	o := New(Options{Searcher: s, Downloader: d, Config: testConfig(), Recorder: rec, Progress: &out})

	report := o.Acquire(context.Background(), []string{"blocked", "offline", "nothing", "paywalled", "good"}, 3)

	assert.Equal(t, []string{"blocked", "offline", "nothing", "paywalled", "good"}, s.queries)
	assert.Equal(t, []string{filepath.Join("out", "good.pdf")}, report.Paths)
	require.Len(t, report.Failures, 4)
	assert.Equal(t, QueryFailure{Query: "nothing", Reason: ReasonNoResults}, report.Failures[2])

	reasons := make([]string, len(report.Failures))
	for i, f := range report.Failures {
		reasons[i] = f.Reason
	}
	assert.Equal(t, []string{ReasonSearchCaptcha, ReasonSearchConnection, ReasonNoResults, "not_a_pdf"}, reasons)

	require.Len(t, rec.papers, 2)
	assert.Equal(t, types.StatusFailed, rec.papers[0].Status)
	assert.Equal(t, "not_a_pdf", rec.papers[0].Reason)
	assert.Equal(t, "paywalled", rec.papers[0].Query)
	assert.Equal(t, types.StatusDownloaded, rec.papers[1].Status)
	assert.Equal(t, report.RunID, rec.papers[1].RunID)

	assert.Contains(t, out.String(), "searching: good")
	assert.Contains(t, out.String(), "failed:  https://x/paywalled.pdf (not_a_pdf)")
}

func TestAcquire_NoSuccesses(t *testing.T) {
	s := &fakeSearcher{empty: map[string]bool{"a": true, "b": true}}
	o := New(Options{Searcher: s, Downloader: &fakeDownloader{}, Config: testConfig()})

	report := o.Acquire(context.Background(), []string{"a", "b"}, 1)
	assert.False(t, report.Succeeded())
	assert.Len(t, report.Failures, 2)
}

func TestAcquire_ZeroQuota(t *testing.T) {
	s := &fakeSearcher{}
	o := New(Options{Searcher: s, Downloader: &fakeDownloader{}, Config: testConfig()})

	report := o.Acquire(context.Background(), []string{"a"}, 0)
	assert.Empty(t, s.queries)
	assert.False(t, report.Succeeded())
}

func TestAcquire_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &fakeSearcher{}
	d := &fakeDownloader{}
	cfg := testConfig()
	o := New(Options{Searcher: s, Downloader: d, Config: cfg})
	cancel()

	report := o.Acquire(ctx, []string{"a", "b"}, 2)
	// The first search runs; the inter-query pause observes the cancellation.
	assert.LessOrEqual(t, len(s.queries), 1)
	assert.Empty(t, d.calls)
	require.NotEmpty(t, report.Failures)
	assert.Equal(t, ReasonCancelled, report.Failures[len(report.Failures)-1].Reason)
}

func TestSummarize(t *testing.T) {
	var out bytes.Buffer
	Summarize(Report{
		RunID:    "run-1",
		Paths:    []string{"out/a.pdf"},
		Failures: []QueryFailure{{Query: "q", Reason: "captcha_blocked", Detail: "captcha blocked"}},
	}, 2, &out)

	text := out.String()
	assert.Contains(t, text, "Acquired 1 of 2 requested paper(s) (run run-1)")
	assert.Contains(t, text, "out/a.pdf")
	assert.Contains(t, text, "captcha_blocked")
}
