// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperfetch/internal/pipeline"
	"github.com/pdiddy/paperfetch/internal/querygen"
	"github.com/pdiddy/paperfetch/internal/search"
	"github.com/pdiddy/paperfetch/internal/secrets"
)

var acquireCmd = &cobra.Command{
	Use:   "acquire",
	Short: "Search and download papers until a quota is met",
	Long: `Acquire runs search queries one at a time, takes the first candidate of
each, and downloads it, stopping as soon as --total papers are on disk.

Queries come from exactly one source:
  --topic          a research description turned into queries by an OpenAI model
                   (needs .secrets/openai-api-key or OPENAI_API_KEY)
  --query          one or more queries given on the command line
  --queries-file   a file with one query per line
  --results        a result file saved by search --out

Failures are collected and listed at the end; they never stop the run.`,
	RunE: runAcquire,
}

func init() {
	acquireCmd.Flags().String("topic", "", "research topic to generate queries for")
	acquireCmd.Flags().StringArray("query", nil, "search query (repeatable)")
	acquireCmd.Flags().String("queries-file", "", "read queries from a file, one per line")
	acquireCmd.Flags().String("results", "", "use candidates from a saved result file")
	acquireCmd.Flags().Int("total", 0, "number of papers to download (default 1)")
	acquireCmd.Flags().String("model", "", "OpenAI model for --topic (default gpt-4o-mini)")
	acquireCmd.Flags().String("backend", "", "search backend: scholar or arxiv")
	acquireCmd.Flags().StringP("output", "o", "", "output directory (default papers)")
	acquireCmd.Flags().String("proxy", "", "outbound proxy URL (http, https, socks5)")
	acquireCmd.Flags().String("history-db", "", "acquisition history database (default papers/history.db)")

	rootCmd.AddCommand(acquireCmd)
}

func runAcquire(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	topic, _ := cmd.Flags().GetString("topic")
	queryFlags, _ := cmd.Flags().GetStringArray("query")
	queriesFile, _ := cmd.Flags().GetString("queries-file")
	resultsFile, _ := cmd.Flags().GetString("results")

	sources := 0
	for _, set := range []bool{topic != "", len(queryFlags) > 0, queriesFile != "", resultsFile != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return errors.New("provide exactly one of --topic, --query, --queries-file, or --results")
	}

	var (
		searcher pipeline.Searcher
		queries  []string
	)
	switch {
	case resultsFile != "":
		rf, err := search.ReadResultFile(resultsFile)
		if err != nil {
			return err
		}
		replay := pipeline.NewReplay(rf.Results)
		searcher, queries = replay, replay.Queries()
	default:
		gen, err := queryGenerator(topic, queryFlags, queriesFile)
		if err != nil {
			return err
		}
		queries, err = gen.Generate(ctx, topic)
		if err != nil {
			return err
		}
		backend, err := newSearcher()
		if err != nil {
			return err
		}
		searcher = backend
	}

	fmt.Fprintf(w, "Queries (%d):\n", len(queries))
	for i, q := range queries {
		fmt.Fprintf(w, "  %d. %s\n", i+1, q)
	}
	fmt.Fprintln(w)

	fetcher, err := newFetcher(ctx)
	if err != nil {
		return err
	}
	store, err := openHistory()
	if err != nil {
		return err
	}
	opts := pipeline.Options{
		Searcher:   searcher,
		Downloader: fetcher,
		Config:     cfg.Acquisition,
		Progress:   w,
		Log:        logger,
	}
	if store != nil {
		defer store.Close()
		opts.Recorder = store
	}

	total := cfg.Acquisition.TotalDesired
	report := pipeline.New(opts).Acquire(ctx, queries, total)
	pipeline.Summarize(report, total, w)
	reportDroppedMirrors(w, fetcher.Mirrors())
	if !report.Succeeded() {
		return errors.New("no papers acquired")
	}
	return nil
}

// queryGenerator picks the query source. A topic needs an OpenAI key; its
// absence is a configuration error.
func queryGenerator(topic string, queries []string, queriesFile string) (querygen.Generator, error) {
	switch {
	case topic != "":
		qc := cfg.QueryGen
		if qc.APIKey == "" {
			qc.APIKey = loadedSecrets.Get(secrets.KeyOpenAI, secrets.EnvOpenAI)
		}
		gen, err := querygen.NewOpenAI(qc, logger)
		if err != nil {
			return nil, err
		}
		return gen, nil
	case queriesFile != "":
		f, err := os.Open(queriesFile)
		if err != nil {
			return nil, fmt.Errorf("opening queries file: %w", err)
		}
		defer f.Close()
		qs, err := querygen.ReadQueries(f)
		if err != nil {
			return nil, err
		}
		return qs, nil
	default:
		return querygen.Static(queries), nil
	}
}
