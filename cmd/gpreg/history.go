// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/gpreg/internal/history"
	"github.com/pdiddy/gpreg/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded fetch runs",
	Long: `History lists runs recorded in the database given by --history-db (or
GPREG_HISTORY_DB), newest first, with the outcome of each target.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	historyCmd.Flags().Bool("json", false, "output runs as JSON")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	hcfg := types.HistoryConfig{DBPath: viper.GetString("history_db")}
	if !hcfg.Enabled() {
		return fmt.Errorf("no history database configured (use --history-db or GPREG_HISTORY_DB)")
	}

	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")

	store, err := history.Open(hcfg)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Recent(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	writeRuns(cmd.OutOrStdout(), runs)
	return nil
}

// writeRuns prints runs as human-readable text.
func writeRuns(w io.Writer, runs []types.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	for _, run := range runs {
		fmt.Fprintf(w, "#%d  %s  %s  %d converted, %d not found, %d failed (%s)\n",
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			run.Period,
			run.Count(types.StatusConverted),
			run.Count(types.StatusNotFound),
			run.Count(types.StatusFailed),
			run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
		)
		if run.PageError != "" {
			fmt.Fprintf(w, "    page error: %s\n", run.PageError)
		}
		for _, r := range run.Results {
			switch r.Status {
			case types.StatusConverted:
				fmt.Fprintf(w, "    %-10s %s -> %s (%d rows)\n", r.Status, r.Target, r.OutputPath, r.Rows)
			case types.StatusFailed:
				fmt.Fprintf(w, "    %-10s %s: %s\n", r.Status, r.Target, r.Error)
			default:
				fmt.Fprintf(w, "    %-10s %s\n", r.Status, r.Target)
			}
		}
	}
}
