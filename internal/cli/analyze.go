package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/codescope/internal/api"
	"github.com/codescope/internal/domain"
	"github.com/codescope/internal/history"
	"github.com/codescope/internal/monitor"
	"github.com/codescope/internal/tui"
	"github.com/codescope/pkg/secrets"
)

var (
	analyzeNoTUI bool
	analyzeRepo  string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file...]",
	Short: "Upload files and run a full analysis",
	Args:  cobra.ArbitraryArgs,
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeNoTUI, "no-tui", false,
		"print plain progress lines instead of the interactive dashboard")
	analyzeCmd.Flags().StringVar(&analyzeRepo, "repo", "",
		"analyze a repository reference instead of local files")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analyzeRepo != "" {
		if len(args) > 0 {
			return fmt.Errorf("pass either --repo or local files, not both")
		}
		return runAnalyzeRepo(cmd)
	}
	if len(args) == 0 {
		return fmt.Errorf("pass files to analyze, or --repo for a repository reference")
	}

	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", path, err)
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory; pass individual files", path)
		}
	}

	warnings := scanForSecrets(args)
	client := api.New(&cfg.Backend, zapLogger)

	if analyzeNoTUI {
		for _, warning := range warnings {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning:", warning)
		}
		return runAnalyzePlain(cmd, client, args)
	}

	store := openHistory()
	if store != nil {
		defer store.Close()
	}

	app := tui.NewApp(cfg, client, store, zapLogger, args)
	app.SetUploadWarnings(warnings)
	defer app.Shutdown()

	program := tea.NewProgram(app, tea.WithAltScreen())
	_, err := program.Run()
	return err
}

// scanForSecrets warns about credential-looking content before the
// files leave the machine. Findings never block the upload.
func scanForSecrets(paths []string) []string {
	scanner := secrets.NewScanner()

	var warnings []string
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		for _, finding := range scanner.Scan(string(content)) {
			warnings = append(warnings, finding.Describe(path))
			zapLogger.Warn("possible secret in upload",
				zap.String("path", path),
				zap.String("kind", finding.Kind),
				zap.Int("line", finding.Line),
			)
		}
	}
	return warnings
}

// runAnalyzeRepo starts a job against a repository reference. There is
// no upload leg; the backend resolves the reference itself.
func runAnalyzeRepo(cmd *cobra.Command) error {
	client := api.New(&cfg.Backend, zapLogger)

	jobID := uuid.NewString()
	startCtx, cancelStart := context.WithTimeout(context.Background(), cfg.Backend.Timeout)
	defer cancelStart()

	start, err := client.StartAnalysis(startCtx, []string{analyzeRepo}, jobID)
	if err != nil {
		return fmt.Errorf("%s", domain.UserMessage(err))
	}

	store := openHistory()
	if store != nil {
		defer store.Close()
		if err := store.RecordStart(start.JobID, analyzeRepo); err != nil {
			zapLogger.Warn("history record failed", zap.Error(err))
		}
	}

	if analyzeNoTUI {
		fmt.Fprintf(cmd.OutOrStdout(), "job %s started for %s\n", start.JobID, analyzeRepo)
		return followJob(cmd, client, store, start.JobID)
	}

	app := tui.NewAppForJob(cfg, client, store, zapLogger, start.JobID)
	defer app.Shutdown()

	program := tea.NewProgram(app, tea.WithAltScreen())
	_, err = program.Run()
	return err
}

// runAnalyzePlain drives the same upload/start/monitor pipeline without
// the interactive views, for scripts and dumb terminals.
func runAnalyzePlain(cmd *cobra.Command, client *api.Client, paths []string) error {
	out := cmd.OutOrStdout()
	ctx := context.Background()

	uploadCtx, cancelUpload := context.WithTimeout(ctx, cfg.Backend.UploadTimeout)
	defer cancelUpload()

	fmt.Fprintf(out, "uploading %d file(s)...\n", len(paths))
	resp, err := client.UploadFiles(uploadCtx, paths, nil)
	if err != nil {
		return fmt.Errorf("%s", domain.UserMessage(err))
	}

	serverPaths := make([]string, 0, len(resp.Files))
	for _, f := range resp.Files {
		if f.ServerPath != "" {
			serverPaths = append(serverPaths, f.ServerPath)
		}
	}

	jobID := uuid.NewString()
	startCtx, cancelStart := context.WithTimeout(ctx, cfg.Backend.Timeout)
	defer cancelStart()

	start, err := client.StartAnalysis(startCtx, serverPaths, jobID)
	if err != nil {
		return fmt.Errorf("%s", domain.UserMessage(err))
	}
	fmt.Fprintf(out, "job %s started\n", start.JobID)

	store := openHistory()
	if store != nil {
		defer store.Close()
		if err := store.RecordStart(start.JobID, paths[0]); err != nil {
			zapLogger.Warn("history record failed", zap.Error(err))
		}
	}

	return followJob(cmd, client, store, start.JobID)
}

// followJob streams monitor updates as plain progress lines until the
// job reaches a terminal state, then prints the report.
func followJob(cmd *cobra.Command, client *api.Client, store *history.Store, jobID string) error {
	out := cmd.OutOrStdout()

	monCtx, cancelMon := context.WithCancel(context.Background())
	defer cancelMon()

	mon := monitor.NewForClient(client, jobID, cfg.Monitor.PollInterval, zapLogger,
		monitor.WithResultsTimeout(cfg.Monitor.ResultsTimeout))

	lastProgress := -1
	for update := range mon.Run(monCtx) {
		switch update.Kind {
		case monitor.KindProgress:
			if update.Job.Progress != lastProgress {
				lastProgress = update.Job.Progress
				fmt.Fprintf(out, "  %3d%%  %s\n", update.Job.Progress, update.Job.Message)
			}

		case monitor.KindFailed:
			recordPlainTerminal(store, update, nil)
			return fmt.Errorf("analysis failed: %s", update.Job.Message)

		case monitor.KindResultsError:
			return fmt.Errorf("analysis completed but results are unavailable: %s",
				domain.UserMessage(update.Err))

		case monitor.KindCompleted:
			recordPlainTerminal(store, update, update.Result)
			fmt.Fprintln(out)
			printReport(out, update.Result)
			return nil
		}
	}

	return fmt.Errorf("monitor stopped before the job finished")
}

func recordPlainTerminal(store *history.Store, update monitor.Update, result *domain.AnalysisResult) {
	if store == nil {
		return
	}
	status := domain.StatusFailed
	score, issues := 0, 0
	if result != nil {
		status = domain.StatusCompleted
		score = result.Summary.OverallScore
		issues = result.Summary.TotalIssues
	}
	completedAt := time.Now()
	if update.Job.CompletionTime != nil {
		completedAt = *update.Job.CompletionTime
	}
	if err := store.RecordTerminal(update.Job.JobID, status, score, issues, completedAt); err != nil {
		zapLogger.Warn("history record failed", zap.Error(err))
	}
}
