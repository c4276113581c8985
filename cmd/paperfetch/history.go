// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperfetch/internal/ledger"
	"github.com/pdiddy/paperfetch/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded acquisition outcomes",
	Long: `History lists the newest entries of the acquisition ledger: what was
downloaded, skipped, or failed, with the failure reason and file path.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("last", 20, "number of entries to show")
	historyCmd.Flags().String("run", "", "only show entries from this run ID")
	historyCmd.Flags().String("status", "", "only show entries with this status: downloaded, skipped, failed")
	historyCmd.Flags().Bool("yaml", false, "output entries as YAML")
	historyCmd.Flags().String("history-db", "", "acquisition history database (default papers/history.db)")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("acquisition history is disabled (acquisition.history_db is empty)")
	}
	defer store.Close()

	last, _ := cmd.Flags().GetInt("last")
	runID, _ := cmd.Flags().GetString("run")
	status, _ := cmd.Flags().GetString("status")
	asYAML, _ := cmd.Flags().GetBool("yaml")

	switch types.AcquisitionStatus(status) {
	case "", types.StatusDownloaded, types.StatusSkipped, types.StatusFailed:
	default:
		return fmt.Errorf("unknown status %q", status)
	}

	ctx := cmd.Context()
	papers, err := store.Recent(ctx, ledger.Filter{RunID: runID, Status: types.AcquisitionStatus(status), Limit: last})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if asYAML {
		return ledger.WriteYAML(papers, w)
	}
	ledger.FormatTable(papers, w)

	counts, err := store.Count(ctx, runID)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d downloaded, %d skipped, %d failed (total: %d)\n",
		counts.Downloaded, counts.Skipped, counts.Failed, counts.Total())
	return nil
}
