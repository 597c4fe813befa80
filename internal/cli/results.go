package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/codescope/internal/api"
	"github.com/codescope/internal/domain"
	"github.com/codescope/internal/tui"
)

var resultsInteractive bool

var resultsCmd = &cobra.Command{
	Use:   "results <job-id>",
	Short: "Fetch and print the report for a finished job",
	Args:  cobra.ExactArgs(1),
	RunE:  runResults,
}

func init() {
	resultsCmd.Flags().BoolVar(&resultsInteractive, "tui", false,
		"open the interactive dashboard instead of printing the report")
}

func runResults(cmd *cobra.Command, args []string) error {
	jobID := args[0]
	client := api.New(&cfg.Backend, zapLogger)

	if resultsInteractive {
		store := openHistory()
		if store != nil {
			defer store.Close()
		}

		app := tui.NewAppForJob(cfg, client, store, zapLogger, jobID)
		defer app.Shutdown()

		program := tea.NewProgram(app, tea.WithAltScreen())
		_, err := program.Run()
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Monitor.ResultsTimeout)
	defer cancel()

	result, err := client.GetAnalysisResults(ctx, jobID)
	if err != nil {
		return fmt.Errorf("%s", domain.UserMessage(err))
	}

	printReport(cmd.OutOrStdout(), result)
	return nil
}

// printReport writes the plain-text rendition of a report, shared by
// the non-interactive analyze and results paths.
func printReport(out io.Writer, r *domain.AnalysisResult) {
	fmt.Fprintf(out, "job %s · %d files · %s\n\n",
		r.JobID, r.Summary.TotalFiles, r.TotalTime.Round(100*time.Millisecond))

	fmt.Fprintf(out, "overall score  %d\n", r.Summary.OverallScore)
	fmt.Fprintf(out, "issues         %d (%d critical, %d high, %d medium, %d low)\n\n",
		r.Summary.TotalIssues, r.Summary.CriticalCount,
		r.Summary.HighCount, r.Summary.MediumCount, r.Summary.LowCount)

	fmt.Fprintf(out, "security %d · performance %d · code quality %d · documentation %d\n\n",
		r.Metrics.Security, r.Metrics.Performance, r.Metrics.CodeQuality, r.Metrics.Documentation)

	if len(r.TopIssues) > 0 {
		fmt.Fprintln(out, "top issues:")
		for _, issue := range r.TopIssues {
			fmt.Fprintf(out, "  [%-8s] %s", issue.Severity, issue.Title)
			if issue.FilePath != "" {
				fmt.Fprintf(out, "  (%s:%d, %s)", issue.FilePath, issue.Line, issue.Agent)
			}
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, "files:")
	for _, file := range r.Files {
		fmt.Fprintf(out, "  %-40s %-12s %5d lines  %d issues\n",
			file.FilePath, file.Language, file.LineCount, file.IssueCount)
	}
}
