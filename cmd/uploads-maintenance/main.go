package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fenilsonani/uploads-maintenance/internal/config"
	"github.com/fenilsonani/uploads-maintenance/internal/logging"
	"github.com/fenilsonani/uploads-maintenance/internal/maintenance"
	"github.com/fenilsonani/uploads-maintenance/internal/metrics"
	"github.com/fenilsonani/uploads-maintenance/internal/notifier"
	"github.com/fenilsonani/uploads-maintenance/internal/reporter"
	"github.com/fenilsonani/uploads-maintenance/pkg/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var (
	configPath string
	verbose    bool
	dryRun     bool
	outputFmt  string
	outputFile string
	schedule   string
	pidFile    string
)

// outputNone suppresses the report
const outputNone = "none"

func main() {
	if err := rootCmd.Execute(); err != nil {
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) {
			fmt.Fprintln(os.Stderr, "configuration error:")
			for _, p := range cfgErr.Problems {
				fmt.Fprintf(os.Stderr, "  - %v\n", p)
			}
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "uploads-maintenance",
	Short: "Keep upload folders within their age and storage limits",
	Long: `uploads-maintenance deletes files older than each folder's max age, then the
oldest files while a folder is over its max storage, and warns on Slack or in
the log when usage stays above the warning threshold.

Run it from cron or a systemd timer, or use the daemon command.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runMaintenance,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Apply the retention policy to every configured folder",
	Long:  `Scans each folder, deletes expired and over-quota files, and sends warnings.`,
	RunE:  runMaintenance,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and print the folder policies",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Config file: %s\n", cfg.Source)
		if cfg.Notification.SlackEnabled() {
			fmt.Fprintf(out, "Warnings: slack channel %s\n", cfg.Notification.SlackChannelID)
		} else {
			fmt.Fprintln(out, "Warnings: system log")
		}
		if cfg.Schedule != "" {
			fmt.Fprintf(out, "Schedule: %s\n", cfg.Schedule)
		}

		fmt.Fprintf(out, "\nFolders:\n")
		for _, f := range cfg.Folders {
			warn := utils.FormatMB(f.WarnStorageMB)
			if f.WarnDisabled {
				warn = "off"
			}
			fmt.Fprintf(out, "  %s: %s (max age %d days, max storage %s, warn %s",
				f.Name, f.Path, f.MaxAgeDays, utils.FormatMB(f.MaxStorageMB), warn)
			if f.Recursive {
				fmt.Fprint(out, ", recursive")
			}
			if len(f.Exclude) > 0 {
				fmt.Fprintf(out, ", exclude %v", f.Exclude)
			}
			fmt.Fprintln(out, ")")
		}

		if hazards := cfg.Hazards(); len(hazards) > 0 {
			fmt.Fprintf(out, "\nHazards:\n")
			for _, h := range hazards {
				fmt.Fprintf(out, "  - %s\n", h)
			}
		}
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show what a run would delete without changing anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun = true
		return runMaintenance(cmd, args)
	},
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run maintenance on a cron schedule until stopped",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		defer env.logger.Close()

		expr := env.cfg.Schedule
		if schedule != "" {
			expr = schedule
		}
		if expr == "" {
			return fmt.Errorf("no schedule: set 'schedule' in the configuration or pass --schedule")
		}

		d, err := newDaemon(expr, env)
		if err != nil {
			return err
		}
		return d.Start(cmd.Context())
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "report what would be deleted without deleting or notifying")
	rootCmd.PersistentFlags().StringVar(&outputFmt, "output", "summary", "report format (summary, table, json, yaml, none)")

	// Report command flags
	reportCmd.Flags().StringVar(&outputFile, "file", "", "save report to file")

	// Daemon command flags
	daemonCmd.Flags().StringVar(&schedule, "schedule", "", "cron expression, overrides 'schedule' in the config")
	daemonCmd.Flags().StringVar(&pidFile, "pid-file", "", "write the process id to this file while running")

	// Add commands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(daemonCmd)
}

// environment is everything a run needs, built from the configuration
type environment struct {
	cfg    *config.Config
	logger *logging.Logger
	runner *maintenance.Runner
	format reporter.OutputFormat
	out    io.Writer
}

func setup(cmd *cobra.Command) (*environment, error) {
	var format reporter.OutputFormat
	if outputFmt != outputNone {
		f, err := reporter.ParseFormat(outputFmt)
		if err != nil {
			return nil, err
		}
		format = f
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log, verbose)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	logger.Debug("configuration loaded", "source", cfg.Source, "folders", len(cfg.Folders))
	for _, h := range cfg.Hazards() {
		logger.Warn("configuration hazard", "detail", h)
	}

	opts := []maintenance.Option{maintenance.WithDryRun(dryRun)}
	if cfg.MetricsTextfile != "" {
		opts = append(opts, maintenance.WithMetrics(metrics.New()))
	}

	n := notifier.New(cfg.Notification, logger.Component("notifier"))
	runner := maintenance.New(cfg, n, logger.Component("maintenance"), opts...)

	return &environment{
		cfg:    cfg,
		logger: logger,
		runner: runner,
		format: format,
		out:    cmd.OutOrStdout(),
	}, nil
}

func runMaintenance(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.logger.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := env.runner.Run(ctx)
	if err != nil {
		env.logger.Warn("run interrupted", "error", err)
	}

	env.report(summary)
	return nil
}

// report renders summary. Output problems are logged; they never fail the run.
func (env *environment) report(summary *maintenance.RunSummary) {
	if env.format == "" {
		return
	}

	if outputFile != "" {
		if err := reporter.SaveToFile(summary, outputFile, env.format); err != nil {
			env.logger.Error("cannot save report", "path", outputFile, "error", err)
			return
		}
		fmt.Fprintf(env.out, "Report saved to: %s\n", outputFile)
		return
	}

	if err := reporter.New(env.out, env.format).Report(summary); err != nil {
		env.logger.Error("cannot write report", "error", err)
	}
}
