package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"stagewise/internal/config"
	"stagewise/internal/slogutil"
	"stagewise/internal/version"
)

var (
	repoFlag      string
	verbosityFlag int
	quietFlag     bool
	logFormatFlag string
)

// logger is configured by the root command before any subcommand runs
var logger = slogutil.NewDiscardLogger()

var rootCmd = &cobra.Command{
	Use:   "stagewise",
	Short: "Split working-tree changes into focused commits",
	Long: `stagewise analyzes uncommitted changes and proposes an ordered set of
atomic commits: which files belong together, in what order they should land,
and a conventional-commit skeleton for each.`,
	Version:           version.Info(),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

func init() {
	rootCmd.SetVersionTemplate("stagewise version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVarP(&repoFlag, "repo", "C", ".", "Repository to analyze")
	rootCmd.PersistentFlags().CountVarP(&verbosityFlag, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress all logs")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "", "Log format: human or json (default from config)")
}

// setupLogging sends logs to stderr at warn level unless -v, -q or
// logging.level say otherwise.
func setupLogging(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(repoFlag)
	if err != nil {
		cfg = config.DefaultConfig()
	}

	level := slogutil.LevelFromVerbosity(verbosityFlag, quietFlag)
	if verbosityFlag == 0 && !quietFlag && cfg.Logging.Level != config.DefaultConfig().Logging.Level {
		level = slogutil.LevelFromString(cfg.Logging.Level)
	}
	format := cfg.Logging.Format
	if logFormatFlag != "" {
		format = logFormatFlag
	}

	logger = slogutil.NewFormatLogger(cmd.ErrOrStderr(), format, level)
	slog.SetDefault(logger)
	if err != nil {
		logger.Warn("failed to load config, using defaults", "error", err)
	}
	return nil
}
