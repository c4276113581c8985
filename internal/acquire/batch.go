// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire resolves paper identifiers through mirror sites and
// downloads the PDFs they name.
package acquire

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pdiddy/paperfetch/internal/httputil"
	"github.com/pdiddy/paperfetch/pkg/types"
)

// Downloader fetches an identifier into a directory. *Fetcher implements it.
type Downloader interface {
	Download(ctx context.Context, identifier, destDir string) (*Document, error)
}

// History records acquisition outcomes and remembers prior successes.
type History interface {
	LastSuccess(ctx context.Context, identifier string) (path string, ok bool, err error)
	Record(ctx context.Context, paper types.AcquiredPaper) error
}

// BatchOptions configures DownloadBatch.
type BatchOptions struct {
	DestDir string
	// RunID is stamped on every recorded outcome.
	RunID string
	// Delay is applied between consecutive downloads.
	Delay time.Duration
	// History, when set, is consulted to skip identifiers already on disk
	// and receives every outcome.
	History History
}

// BatchResult holds the outcome of a batch download run.
type BatchResult struct {
	Downloaded int
	Skipped    int
	Failed     int
	Papers     []types.AcquiredPaper
}

// Total returns the total number of identifiers processed.
func (r BatchResult) Total() int {
	return r.Downloaded + r.Skipped + r.Failed
}

// HasFailures reports whether any identifier failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// DownloadBatch downloads each identifier in order, printing per-item status
// to w. It continues after individual failures and stops early only when ctx
// is cancelled.
func DownloadBatch(ctx context.Context, d Downloader, identifiers []string, opts BatchOptions, w io.Writer) BatchResult {
	var result BatchResult
	for i, id := range identifiers {
		if ctx.Err() != nil {
			break
		}
		if i > 0 {
			if err := httputil.Sleep(ctx, opts.Delay); err != nil {
				break
			}
		}

		paper := types.AcquiredPaper{RunID: opts.RunID, Identifier: id}

		if path, ok := priorDownload(ctx, opts.History, id); ok {
			fmt.Fprintf(w, "skipped: %s (already at %s)\n", id, path)
			paper.PDFPath = path
			paper.Status = types.StatusSkipped
			paper.AcquiredAt = time.Now().UTC()
			result.Skipped++
			result.Papers = append(result.Papers, paper)
			continue
		}

		fmt.Fprintf(w, "downloading: %s (%s)\n", id, Classify(id))
		doc, err := d.Download(ctx, id, opts.DestDir)
		paper.AcquiredAt = time.Now().UTC()
		if err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", id, err)
			paper.Status = types.StatusFailed
			paper.Reason = ReasonCode(err)
			result.Failed++
		} else {
			fmt.Fprintf(w, "saved:   %s -> %s\n", id, doc.Path)
			paper.Status = types.StatusDownloaded
			paper.PDFPath = doc.Path
			paper.SourceURL = doc.SourceURL
			result.Downloaded++
		}
		result.Papers = append(result.Papers, paper)

		if opts.History != nil {
			if err := opts.History.Record(ctx, paper); err != nil {
				fmt.Fprintf(w, "  warning: recording history for %s: %v\n", id, err)
			}
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d downloaded, %d skipped, %d failed (total: %d)\n",
		result.Downloaded, result.Skipped, result.Failed, result.Total())
	return result
}

// priorDownload reports a previous successful download whose file still exists.
func priorDownload(ctx context.Context, h History, id string) (string, bool) {
	if h == nil {
		return "", false
	}
	path, ok, err := h.LastSuccess(ctx, id)
	if err != nil || !ok {
		return "", false
	}
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// ReadIdentifiers reads one identifier per line, skipping blank lines and
// lines starting with '#'.
func ReadIdentifiers(r io.Reader) ([]string, error) {
	var ids []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading identifiers: %w", err)
	}
	return ids, nil
}
