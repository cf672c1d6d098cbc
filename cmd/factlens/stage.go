package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/factlens/factlens/internal/aggregate"
	"github.com/factlens/factlens/internal/artifact"
	"github.com/factlens/factlens/internal/config"
	"github.com/factlens/factlens/internal/fakenews"
	"github.com/factlens/factlens/internal/imageeval"
	"github.com/factlens/factlens/internal/pipeline"
	"github.com/factlens/factlens/internal/scrape"
	"github.com/factlens/factlens/internal/wikicheck"
)

// NewStageCmd creates the hidden stage parent command. The scheduler
// re-invokes the factlens binary through these subcommands, one process
// per stage; they are not meant for interactive use.
func NewStageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "stage",
		Short:  "Run a single pipeline stage (internal)",
		Hidden: true,
	}

	cmd.AddCommand(newStageScrapeCmd())
	cmd.AddCommand(newStageWikiCheckCmd())
	cmd.AddCommand(newStageFakeNewsCmd())
	cmd.AddCommand(newStageImageEvalCmd())
	cmd.AddCommand(newStageAggregateCmd())

	return cmd
}

// stageEnv is the shared setup every stage subcommand performs: flag
// parsing, store opening, logging, and signal-aware context.
type stageEnv struct {
	store    *artifact.Store
	storeDir string
	logger   *slog.Logger
	ctx      context.Context
	stop     context.CancelFunc
}

// newStageEnv opens the artifact store and prepares the stage context.
func newStageEnv(cmd *cobra.Command) (*stageEnv, error) {
	storeDir, err := cmd.Flags().GetString("store-dir")
	if err != nil {
		return nil, err
	}
	if storeDir == "" {
		return nil, fmt.Errorf("--store-dir is required")
	}

	store, err := artifact.NewStore(storeDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact store: %w", err)
	}

	logger := setupLogger(getVerboseFlag(cmd))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	return &stageEnv{
		store:    store,
		storeDir: storeDir,
		logger:   logger,
		ctx:      ctx,
		stop:     stop,
	}, nil
}

// addStageFlags registers the flags common to all stage subcommands.
func addStageFlags(cmd *cobra.Command) {
	cmd.Flags().String("store-dir", "", "Artifact store directory")
	_ = cmd.MarkFlagRequired("store-dir") //nolint:errcheck // Flag is registered above
}

// newStageScrapeCmd creates the scrape stage subcommand.
func newStageScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   pipeline.StageScrape,
		Short: "Scrape one article URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := newStageEnv(cmd)
			if err != nil {
				return err
			}
			defer env.stop()

			subject, err := cmd.Flags().GetString("url")
			if err != nil {
				return err
			}
			if subject == "" {
				return fmt.Errorf("--url is required")
			}

			cfg := config.NewConfig()
			cfg.StoreDir = env.storeDir
			cfg.Targets = []string{subject}

			// Site-specific settings are discovered the same way the
			// parent process discovers them; the subprocess cannot
			// inherit parsed config.
			if path := config.FindConfigFile(""); path != "" {
				if cfg.SiteConfigs, err = config.LoadConfigFile(path); err != nil {
					return fmt.Errorf("failed to load config file %s: %w", path, err)
				}
			}

			scraper := scrape.NewScraper(env.store, cfg, scrape.WithScraperLogger(env.logger))
			return scraper.Run(env.ctx, subject)
		},
	}

	addStageFlags(cmd)
	cmd.Flags().String("url", "", "Article URL to scrape")
	return cmd
}

// newStageWikiCheckCmd creates the wikicheck stage subcommand. It
// fact-checks every subject present in the scrape artifact.
func newStageWikiCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   pipeline.StageWikiCheck,
		Short: "Fact-check scraped claims against Wikipedia",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := newStageEnv(cmd)
			if err != nil {
				return err
			}
			defer env.stop()

			client := wikicheck.NewClient(config.DefaultTimeout)
			checker := wikicheck.NewChecker(env.store, client,
				wikicheck.WithCheckerLogger(env.logger))

			return forEachSubject(env, func(subject string) error {
				return checker.Run(env.ctx, subject)
			})
		},
	}

	addStageFlags(cmd)
	return cmd
}

// newStageFakeNewsCmd creates the fakenews stage subcommand. It
// classifies every subject present in the scrape artifact.
func newStageFakeNewsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   pipeline.StageFakeNews,
		Short: "Classify scraped text with the fake-news model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := newStageEnv(cmd)
			if err != nil {
				return err
			}
			defer env.stop()

			classifier, err := fakenews.NewClassifier(config.DefaultTimeout)
			if err != nil {
				return err
			}
			analyzer := fakenews.NewAnalyzer(env.store, classifier,
				fakenews.WithAnalyzerLogger(env.logger))

			return forEachSubject(env, func(subject string) error {
				return analyzer.Run(env.ctx, subject)
			})
		},
	}

	addStageFlags(cmd)
	return cmd
}

// newStageImageEvalCmd creates the imageeval stage subcommand.
func newStageImageEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   pipeline.StageImageEval,
		Short: "Evaluate collected images for manipulation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := newStageEnv(cmd)
			if err != nil {
				return err
			}
			defer env.stop()

			cacheDir := filepath.Join(env.storeDir, "image_search_cache")
			search, err := imageeval.NewSearchClient(config.DefaultTimeout, cacheDir)
			if err != nil {
				return err
			}
			inspector := imageeval.NewExifInspector(config.DefaultTimeout)
			evaluator := imageeval.NewEvaluator(env.store, search, inspector,
				imageeval.WithEvaluatorLogger(env.logger))

			return evaluator.Run(env.ctx)
		},
	}

	addStageFlags(cmd)
	return cmd
}

// newStageAggregateCmd creates the aggregate stage subcommand.
func newStageAggregateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   pipeline.StageAggregate,
		Short: "Aggregate stage outputs into verdicts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := newStageEnv(cmd)
			if err != nil {
				return err
			}
			defer env.stop()

			llm, err := aggregate.NewLLMClient(config.DefaultTimeout)
			if err != nil {
				return err
			}
			aggregator := aggregate.NewAggregator(env.store, llm,
				aggregate.WithAggregatorLogger(env.logger))

			return aggregator.Run(env.ctx)
		},
	}

	addStageFlags(cmd)
	return cmd
}

// forEachSubject runs fn for every subject recorded in the scrape
// artifact, in sorted order so reruns process subjects deterministically.
// A missing scrape artifact is a stage failure: the input this stage
// depends on was never produced.
func forEachSubject(env *stageEnv, fn func(subject string) error) error {
	doc, err := env.store.Read(artifact.Scrape)
	if err != nil {
		return err
	}

	subjects := make([]string, 0, len(doc))
	for subject := range doc {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)

	for _, subject := range subjects {
		if err := env.ctx.Err(); err != nil {
			return err
		}
		if err := fn(subject); err != nil {
			return err
		}
	}
	return nil
}
