// Package cli implements the codescope command tree.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/codescope/internal/config"
	"github.com/codescope/internal/history"
	"github.com/codescope/internal/logger"
)

var (
	// cfg holds the loaded configuration, available to all commands.
	// Initialized in PersistentPreRunE.
	cfg *config.Config

	// zapLogger is the process-wide logger. Interactive commands own
	// the terminal, so it always writes to a file.
	zapLogger *zap.Logger

	logFile string
)

var rootCmd = &cobra.Command{
	Use:   "codescope",
	Short: "Terminal client for the multi-agent code analysis service",
	Long: `Codescope uploads source files to the analysis backend, follows the
job through its specialist agents (security, performance, complexity,
documentation), and presents the scored report in the terminal. Once a
report is in, you can chat with the backend about the analyzed code.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load .env file if it exists (development)
		_ = godotenv.Load()

		development := os.Getenv("CODESCOPE_ENV") != "production"

		var err error
		zapLogger, err = logger.NewFile(development, logFile)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load()
		if err != nil {
			zapLogger.Error("failed to load configuration", zap.Error(err))
			return err
		}

		zapLogger.Info("starting codescope",
			zap.String("command", cmd.Name()),
			zap.String("backend", cfg.Backend.BaseURL),
			zap.Bool("development", development),
		)

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if zapLogger != nil {
			_ = zapLogger.Sync()
		}
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	home, _ := os.UserHomeDir()
	defaultLog := filepath.Join(home, ".codescope", "codescope.log")

	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", defaultLog,
		"diagnostic log location; the terminal itself belongs to the views")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(historyCmd)
}

// openHistory opens the local job history. A broken history store
// degrades to nil rather than blocking analysis.
func openHistory() *history.Store {
	store, err := history.Open(cfg.History.Path, cfg.History.MaxEntries, zapLogger)
	if err != nil {
		zapLogger.Warn("history store unavailable", zap.Error(err))
		return nil
	}
	return store
}
