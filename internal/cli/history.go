package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/codescope/internal/domain"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent analysis jobs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum entries to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	store := openHistory()
	if store == nil {
		return fmt.Errorf("history store unavailable at %s", cfg.History.Path)
	}
	defer store.Close()

	entries, err := store.Recent(historyLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "no analysis jobs recorded yet")
		return nil
	}

	fmt.Fprintf(out, "%-38s %-12s %-6s %-7s %s\n", "JOB", "STATUS", "SCORE", "ISSUES", "STARTED")
	for _, entry := range entries {
		score, issues := "-", "-"
		if entry.Status == domain.StatusCompleted {
			score = fmt.Sprintf("%d", entry.OverallScore)
			issues = fmt.Sprintf("%d", entry.TotalIssues)
		}
		fmt.Fprintf(out, "%-38s %-12s %-6s %-7s %s\n",
			entry.JobID, entry.Status, score, issues,
			entry.CreatedAt.Local().Format(time.DateTime))
	}

	return nil
}
