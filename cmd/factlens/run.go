package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/factlens/factlens/internal/artifact"
	"github.com/factlens/factlens/internal/config"
	"github.com/factlens/factlens/internal/database"
	"github.com/factlens/factlens/internal/pipeline"
	"github.com/factlens/factlens/internal/report"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [article-url]",
		Short: "Analyze news article URLs for validity",
		Long: `Run analyzes one or more news article URLs through the full pipeline.

Each URL is scraped, fact-checked against Wikipedia, classified with a
fake-news model, and its images evaluated for manipulation. The evidence
is aggregated into a verdict printed as a report.

Required environment variables:
  SERPAPI_KEY         Reverse image search (image evaluation)
  FAKENEWS_API_TOKEN  Hosted fake-news classifier
  LLM_API_KEY         Verdict summarization model

Examples:
  # Analyze a single article
  factlens run https://example.com/news/article

  # Analyze several articles in sequence
  factlens run https://example.com/a https://example.com/b

  # Output a JSON verdict report
  factlens run --json https://example.com/news/article

  # Use a custom configuration file
  factlens run -c myconfig.yaml https://example.com/news/article

Configuration file (.factlens) example:
  sites:
    example.com:
      cookie: "consent=accepted"
      headers:
        Authorization: "Bearer token"
  defaults:
    minContentLength: 20`,
		Args: cobra.ArbitraryArgs,
		RunE: runRunCmd,
	}

	// Pipeline behavior flags
	cmd.Flags().StringP("store-dir", "s", "",
		"Artifact store directory (default: XDG data directory)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Connection timeout for each outbound request")
	cmd.Flags().DurationP("join-timeout", "J", config.DefaultJoinTimeout,
		"Maximum wait for the background image evaluation stage (0 waits forever)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .factlens in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// History flags
	cmd.Flags().Bool("no-db", false,
		"Do not record the run in the history database")

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging
	verbose := getVerboseFlag(cmd)
	logger := setupLogger(verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runAnalysis(ctx, cfg, logger)
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.StoreDir, err = cmd.Flags().GetString("store-dir")
	if err != nil {
		return nil, err
	}
	if cfg.StoreDir == "" {
		cfg.StoreDir = filepath.Join(config.XDGDataDir(), "store")
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.JoinTimeout, err = cmd.Flags().GetDuration("join-timeout")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	noDB, err := cmd.Flags().GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	cfg.DBDir = config.XDGDataDir()

	// Get positional arguments (article URLs)
	cfg.Targets = args

	return cfg, nil
}

// buildScheduler assembles the stage table, runner, and scheduler over
// the given store. Stages run as subprocesses of the current executable
// unless the config overrides the stage command.
func buildScheduler(cfg *config.Config, store *artifact.Store, logger *slog.Logger, observers ...pipeline.Observer) (*pipeline.Scheduler, error) {
	stageCmd := cfg.StageCommand
	if len(stageCmd) == 0 {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to locate executable: %w", err)
		}
		stageCmd = []string{exe, "stage"}
	}

	stages := pipeline.NewStages(stageCmd, cfg.StoreDir)
	runner := pipeline.NewRunner(store, pipeline.WithRunnerLogger(logger))

	opts := []pipeline.SchedulerOption{
		pipeline.WithSchedulerLogger(logger),
		pipeline.WithJoinTimeout(cfg.JoinTimeout),
	}
	for _, obs := range observers {
		opts = append(opts, pipeline.WithObserver(obs))
	}

	return pipeline.NewScheduler(stages, runner, store, opts...), nil
}

// progressObserver prints per-stage progress to stdout while a run is
// underway. State transitions are left to the structured log.
type progressObserver struct{}

// StateChanged implements pipeline.Observer.
func (progressObserver) StateChanged(_ *pipeline.PipelineRun, _ pipeline.RunState) {}

// StageFinished implements pipeline.Observer.
func (progressObserver) StageFinished(_ *pipeline.PipelineRun, stage string, result pipeline.StageResult, err error) {
	if err != nil {
		fmt.Printf("  %-10s failed (%s)\n", stage, result.Duration.Round(time.Millisecond))
		return
	}
	fmt.Printf("  %-10s done (%s)\n", stage, result.Duration.Round(time.Millisecond))
}

// runAnalysis analyzes each target sequentially. Targets share one
// artifact store, so runs never overlap.
func runAnalysis(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting analysis",
		"targets", cfg.Targets,
		"storeDir", cfg.StoreDir,
		"saveToDB", cfg.SaveToDB,
	)

	store, err := artifact.NewStore(cfg.StoreDir)
	if err != nil {
		return fmt.Errorf("failed to open artifact store: %w", err)
	}

	observers := []pipeline.Observer{progressObserver{}}

	// Open database connection if saving is enabled
	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)

		observers = append(observers, database.NewRecorder(db, store, logger))
	}

	scheduler, err := buildScheduler(cfg, store, logger, observers...)
	if err != nil {
		return err
	}

	var failed int
	for _, target := range cfg.Targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fmt.Printf("Analyzing %s...\n", target)
		startTime := time.Now()

		run, err := scheduler.Run(ctx, target)
		if err != nil {
			failed++
			logger.Error("analysis failed", "target", target, "error", err)
			fmt.Fprintf(os.Stderr, "Analysis error for %s (stage %s): %v\n", target, run.FailedStage, err)

			var stageErr *pipeline.StageError
			if errors.As(err, &stageErr) {
				if diag := stageErr.Diagnostics(); diag != "" {
					fmt.Fprintln(os.Stderr, diag)
				}
			}
			continue
		}

		elapsed := time.Since(startTime)
		fmt.Printf("Analysis completed in %s\n\n", elapsed.Round(time.Millisecond))

		if err := outputReport(cfg, store, target); err != nil {
			logger.Error("report failed", "target", target, "error", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d analyses failed", failed, len(cfg.Targets))
	}
	return nil
}

// outputReport outputs the verdict report in the requested format.
func outputReport(cfg *config.Config, store *artifact.Store, target string) error {
	result, err := report.Collect(store, target)
	if err != nil {
		return fmt.Errorf("failed to collect report data: %w", err)
	}

	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	// JSON output (detailed report with all data)
	if cfg.JSONReport {
		writer := report.NewJSONWriter(output, report.WithPrettyPrint())
		_, err := writer.Write(result)
		return err
	}

	// Markdown output
	if cfg.MarkdownReport {
		writer := report.NewMarkdownWriter(output)
		_, err := writer.Write(result)
		return err
	}

	// Human-readable report (default)
	writer := report.NewSimpleWriter(output)
	_, err = writer.Write(result)
	return err
}
