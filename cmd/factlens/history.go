package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/factlens/factlens/internal/config"
	"github.com/factlens/factlens/internal/database"
)

// defaultHistoryLimit is how many runs the history command shows when
// --limit is not given.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent pipeline runs",
		Long: `History lists recent pipeline runs recorded in the local database,
newest first, with each run's final state and verdict summary.

Examples:
  # Show the last 20 runs
  factlens history

  # Show the last 5 runs
  factlens history --limit 5`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to show")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	if limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", limit)
	}

	// Do not create the database just to report it is empty.
	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false

	db, err := database.Open(config.XDGDataDir(), opts)
	if err != nil {
		return fmt.Errorf("no run history: %w", err)
	}
	defer db.Close()

	runs, err := db.RecentRuns(context.Background(), limit)
	if err != nil {
		return fmt.Errorf("failed to read run history: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
		return nil
	}

	for _, run := range runs {
		printRun(cmd, run)
	}
	return nil
}

// printRun prints one run's history entry.
func printRun(cmd *cobra.Command, run database.RunRecord) {
	out := cmd.OutOrStdout()

	elapsed := run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond)
	fmt.Fprintf(out, "[%d] %s  %s  %s (%s)\n",
		run.ID,
		run.StartedAt.Local().Format("2006-01-02 15:04:05"),
		run.FinalState,
		run.Subject,
		elapsed,
	)

	if run.FailedStage != "" {
		fmt.Fprintf(out, "     failed stage: %s: %s\n", run.FailedStage, run.Error)
	}
	if run.Summary != "" {
		fmt.Fprintf(out, "     %s\n", run.Summary)
	}
}
