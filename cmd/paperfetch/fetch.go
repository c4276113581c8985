// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperfetch/internal/acquire"
	"github.com/pdiddy/paperfetch/internal/ledger"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [identifiers...]",
	Short: "Download papers by DOI, PubMed ID, or URL",
	Long: `Fetch resolves each identifier through the current mirror and writes the
PDF into the output directory. Direct PDF links are downloaded as-is.

Identifiers can be given as arguments or read from a file with -f, one per
line. Identifiers already downloaded in an earlier run are skipped while
their file still exists.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringP("file", "f", "", "read identifiers from a file, one per line")
	fetchCmd.Flags().StringP("output", "o", "", "output directory (default papers)")
	fetchCmd.Flags().String("proxy", "", "outbound proxy URL (http, https, socks5)")
	fetchCmd.Flags().Int("max-attempts", 0, "attempt budget per identifier (default 3)")
	fetchCmd.Flags().Duration("delay", 0, "delay between consecutive downloads (default 3s)")
	fetchCmd.Flags().String("history-db", "", "acquisition history database (default papers/history.db)")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	ids := append([]string(nil), args...)
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening identifier file: %w", err)
		}
		fromFile, err := acquire.ReadIdentifiers(f)
		f.Close()
		if err != nil {
			return err
		}
		ids = append(ids, fromFile...)
	}
	if len(ids) == 0 {
		return errors.New("provide one or more identifiers (DOI, PubMed ID, or URL) or -f file")
	}

	ctx := cmd.Context()
	fetcher, err := newFetcher(ctx)
	if err != nil {
		return err
	}

	store, err := openHistory()
	if err != nil {
		return err
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

	result := acquire.DownloadBatch(ctx, fetcher, ids, opts, cmd.OutOrStdout())
	reportDroppedMirrors(cmd.OutOrStdout(), fetcher.Mirrors())
	if result.HasFailures() {
		return fmt.Errorf("%d paper(s) failed acquisition", result.Failed)
	}
	return ctx.Err()
}
