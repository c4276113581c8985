// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs search queries and downloads the candidates they
// return until a global quota of PDFs is on disk.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/paperfetch/internal/acquire"
	"github.com/pdiddy/paperfetch/internal/httputil"
	"github.com/pdiddy/paperfetch/internal/logging"
	"github.com/pdiddy/paperfetch/internal/search"
	"github.com/pdiddy/paperfetch/pkg/types"
)

// Failure reasons for queries that never reached the fetcher.
const (
	ReasonNoResults        = "no_results"
	ReasonSearchCaptcha    = "search_captcha"
	ReasonSearchConnection = "search_connection"
	ReasonSearchStatus     = "search_status"
	ReasonSearchError      = "search_error"
	ReasonCancelled        = "cancelled"
)

// Searcher returns candidates for a query. search.Backend implements it.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error)
}

// Recorder receives every download outcome. *ledger.Store implements it.
type Recorder interface {
	Record(ctx context.Context, paper types.AcquiredPaper) error
}

// QueryFailure is one accumulated failure.
type QueryFailure struct {
	Query  string
	Reason string
	Detail string
}

// Report is the outcome of one Acquire run.
type Report struct {
	RunID    string
	Paths    []string
	Failures []QueryFailure
}

// Succeeded reports whether at least one PDF was acquired.
func (r Report) Succeeded() bool {
	return len(r.Paths) > 0
}

// Options configures an Orchestrator.
type Options struct {
	Searcher   Searcher
	Downloader acquire.Downloader
	Config     types.AcquisitionConfig

	// Recorder is optional.
	Recorder Recorder

	// Progress receives user-facing status lines. Defaults to io.Discard.
	Progress io.Writer

	Log *zap.Logger
}

// Orchestrator drives search then download, one query and one candidate
// at a time.
type Orchestrator struct {
	searcher   Searcher
	downloader acquire.Downloader
	cfg        types.AcquisitionConfig
	recorder   Recorder
	w          io.Writer
	log        *zap.Logger
}

// New builds an Orchestrator.
func New(opts Options) *Orchestrator {
	w := opts.Progress
	if w == nil {
		w = io.Discard
	}
	cfg := opts.Config
	if cfg.PerQueryLimit < 1 {
		cfg.PerQueryLimit = 1
	}
	return &Orchestrator{
		searcher:   opts.Searcher,
		downloader: opts.Downloader,
		cfg:        cfg,
		recorder:   opts.Recorder,
		w:          w,
		log:        logging.OrNop(opts.Log).Named("pipeline"),
	}
}

// Acquire runs queries in order until totalDesired PDFs are downloaded or
// the queries run out. Failures are collected in the report; they never
// stop the run. Cancelling ctx ends the run early.
func (o *Orchestrator) Acquire(ctx context.Context, queries []string, totalDesired int) Report {
	report := Report{RunID: uuid.NewString()}
	log := o.log.With(zap.String("run_id", report.RunID))
	if totalDesired < 1 {
		return report
	}

	for i, query := range queries {
		if len(report.Paths) >= totalDesired {
			break
		}
		if i > 0 {
			if err := httputil.Sleep(ctx, httputil.Jitter(o.cfg.QueryDelayMin, o.cfg.QueryDelayMax)); err != nil {
				report.Failures = append(report.Failures, QueryFailure{Query: query, Reason: ReasonCancelled, Detail: err.Error()})
				break
			}
		}

		fmt.Fprintf(o.w, "searching: %s\n", query)
		results, err := o.searcher.Search(ctx, query, o.cfg.PerQueryLimit)
		if err != nil {
			log.Warn("search failed", zap.String("query", query), zap.Error(err))
			fmt.Fprintf(o.w, "  search failed: %v\n", err)
			report.Failures = append(report.Failures, QueryFailure{Query: query, Reason: searchReason(err), Detail: err.Error()})
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if len(results) == 0 {
			fmt.Fprintln(o.w, "  no results")
			report.Failures = append(report.Failures, QueryFailure{Query: query, Reason: ReasonNoResults})
			continue
		}

		for _, r := range results {
			if len(report.Paths) >= totalDesired || ctx.Err() != nil {
				break
			}
			o.download(ctx, &report, query, r)
			if err := httputil.Sleep(ctx, o.cfg.DownloadDelay); err != nil {
				break
			}
		}
	}

	log.Info("acquisition finished",
		zap.Int("downloaded", len(report.Paths)),
		zap.Int("wanted", totalDesired),
		zap.Int("failures", len(report.Failures)),
	)
	return report
}

func (o *Orchestrator) download(ctx context.Context, report *Report, query string, r types.SearchResult) {
	fmt.Fprintf(o.w, "  downloading: %s\n", r.Title)
	paper := types.AcquiredPaper{
		RunID:      report.RunID,
		Identifier: r.CandidateURL,
		Query:      query,
		Title:      r.Title,
	}

	doc, err := o.downloader.Download(ctx, r.CandidateURL, o.cfg.OutputDir)
	paper.AcquiredAt = time.Now().UTC()
	if err != nil {
		reason := acquire.ReasonCode(err)
		fmt.Fprintf(o.w, "  failed:  %s (%s)\n", r.CandidateURL, reason)
		report.Failures = append(report.Failures, QueryFailure{Query: query, Reason: reason, Detail: err.Error()})
		paper.Status = types.StatusFailed
		paper.Reason = reason
	} else {
		fmt.Fprintf(o.w, "  saved:   %s\n", doc.Path)
		report.Paths = append(report.Paths, doc.Path)
		paper.Status = types.StatusDownloaded
		paper.PDFPath = doc.Path
		paper.SourceURL = doc.SourceURL
	}

	if o.recorder != nil {
		if err := o.recorder.Record(ctx, paper); err != nil {
			o.log.Warn("recording outcome", zap.String("identifier", paper.Identifier), zap.Error(err))
		}
	}
}

func searchReason(err error) string {
	switch {
	case errors.Is(err, search.ErrCaptcha):
		return ReasonSearchCaptcha
	case errors.Is(err, search.ErrConnection):
		return ReasonSearchConnection
	case errors.Is(err, search.ErrStatus):
		return ReasonSearchStatus
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCancelled
	default:
		return ReasonSearchError
	}
}

// Summarize writes the report's outcome and accumulated failures to w.
func Summarize(r Report, totalDesired int, w io.Writer) {
	fmt.Fprintf(w, "\nAcquired %d of %d requested paper(s) (run %s)\n", len(r.Paths), totalDesired, r.RunID)
	for _, p := range r.Paths {
		fmt.Fprintf(w, "  %s\n", p)
	}
	if len(r.Failures) == 0 {
		return
	}
	fmt.Fprintf(w, "%d failure(s):\n", len(r.Failures))
	for _, f := range r.Failures {
		if f.Detail != "" {
			fmt.Fprintf(w, "  %-18s %s: %s\n", f.Reason, f.Query, f.Detail)
		} else {
			fmt.Fprintf(w, "  %-18s %s\n", f.Reason, f.Query)
		}
	}
}
