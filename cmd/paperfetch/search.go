// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/paperfetch/internal/acquire"
	"github.com/pdiddy/paperfetch/internal/ledger"
	"github.com/pdiddy/paperfetch/internal/search"
	"github.com/pdiddy/paperfetch/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search for candidate papers",
	Long: `Search queries Google Scholar (or arXiv with --backend arxiv) and lists
candidate papers with the link each one would be fetched from.

Boolean operators and quotes are passed through, e.g.
  paperfetch search '"machine learning" AND healthcare' --limit 5

With --download every candidate is fetched into the output directory. With
--out the results are saved to a YAML file that acquire --results can use.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int("limit", 0, "maximum number of results (default 10)")
	searchCmd.Flags().String("backend", "", "search backend: scholar or arxiv")
	searchCmd.Flags().String("out", "", "save results to a YAML file")
	searchCmd.Flags().Bool("download", false, "download every result")
	searchCmd.Flags().StringP("output", "o", "", "output directory for --download (default papers)")
	searchCmd.Flags().String("proxy", "", "outbound proxy URL (http, https, socks5)")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	backend, err := newSearcher()
	if err != nil {
		return err
	}

	results, searchErr := backend.Search(ctx, query, cfg.Search.Limit)
	if searchErr != nil {
		logger.Warn("search incomplete", zap.String("query", query), zap.Error(searchErr))
	}
	search.FormatTable(results, w)

	if out, _ := cmd.Flags().GetString("out"); out != "" {
		if err := search.WriteResultFile(out, query, backend.Name(), cfg.Search.Limit, results, searchErr); err != nil {
			return err
		}
		fmt.Fprintf(w, "Saved results to %s\n", out)
	}

	if download, _ := cmd.Flags().GetBool("download"); download && len(results) > 0 {
		if err := downloadResults(cmd, query, results); err != nil {
			return errors.Join(searchErr, err)
		}
	}
	return searchErr
}

func downloadResults(cmd *cobra.Command, query string, results []types.SearchResult) error {
	ctx := cmd.Context()
	fetcher, err := newFetcher(ctx)
	if err != nil {
		return err
	}
	store, err := openHistory()
	if err != nil {
		return err
	}

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.CandidateURL
	}
	opts := acquire.BatchOptions{
		DestDir: cfg.Acquisition.OutputDir,
		Delay:   cfg.Acquisition.DownloadDelay,
		RunID:   ledger.NewRunID(),
	}
	if store != nil {
		defer store.Close()
		opts.History = store
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nDownloading %d result(s) for %q\n", len(ids), query)
	result := acquire.DownloadBatch(ctx, fetcher, ids, opts, cmd.OutOrStdout())
	reportDroppedMirrors(cmd.OutOrStdout(), fetcher.Mirrors())
	if result.HasFailures() {
		return fmt.Errorf("%d paper(s) failed acquisition", result.Failed)
	}
	return nil
}
