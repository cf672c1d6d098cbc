package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/factlens/factlens/internal/artifact"
	"github.com/factlens/factlens/internal/config"
	"github.com/factlens/factlens/internal/database"
	"github.com/factlens/factlens/internal/pipeline"
	"github.com/factlens/factlens/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis pipeline over HTTP",
		Long: `Serve starts an HTTP API exposing the analysis pipeline.

POST /analyze with {"url": "https://..."} runs the full pipeline for the
article and returns its verdict. GET /health reports liveness.

Requests are serialized: the artifact store supports one active run at a
time, so concurrent requests queue behind each other.

Examples:
  # Serve on the default address
  factlens serve

  # Serve on a custom address with a longer per-request timeout
  factlens serve --addr :9090 --request-timeout 10m`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("addr", "a", config.DefaultListenAddr,
		"HTTP listen address")
	cmd.Flags().StringP("store-dir", "s", "",
		"Artifact store directory (default: XDG data directory)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Connection timeout for each outbound request")
	cmd.Flags().DurationP("join-timeout", "J", config.DefaultJoinTimeout,
		"Maximum wait for the background image evaluation stage (0 waits forever)")
	cmd.Flags().DurationP("request-timeout", "r", config.DefaultRequestTimeout,
		"Maximum duration for one analysis request")
	cmd.Flags().Bool("no-db", false,
		"Do not record runs in the history database")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg := config.NewConfig()

	var err error

	cfg.ListenAddr, err = cmd.Flags().GetString("addr")
	if err != nil {
		return err
	}

	cfg.StoreDir, err = cmd.Flags().GetString("store-dir")
	if err != nil {
		return err
	}
	if cfg.StoreDir == "" {
		cfg.StoreDir = filepath.Join(config.XDGDataDir(), "store")
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}

	cfg.JoinTimeout, err = cmd.Flags().GetDuration("join-timeout")
	if err != nil {
		return err
	}

	cfg.RequestTimeout, err = cmd.Flags().GetDuration("request-timeout")
	if err != nil {
		return err
	}

	noDB, err := cmd.Flags().GetBool("no-db")
	if err != nil {
		return err
	}
	cfg.SaveToDB = !noDB
	cfg.DBDir = config.XDGDataDir()

	verbose := getVerboseFlag(cmd)
	logger := setupLogger(verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serveAPI(ctx, cfg, logger)
}

// serveAPI runs the HTTP API until the context is canceled.
func serveAPI(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, err := artifact.NewStore(cfg.StoreDir)
	if err != nil {
		return fmt.Errorf("failed to open artifact store: %w", err)
	}

	var observers []pipeline.Observer
	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		observers = append(observers, database.NewRecorder(db, store, logger))
	}

	scheduler, err := buildScheduler(cfg, store, logger, observers...)
	if err != nil {
		return err
	}

	srv := server.New(cfg.ListenAddr, store, scheduler.Run,
		server.WithRequestTimeout(cfg.RequestTimeout),
		server.WithLogger(logger),
	)

	fmt.Printf("Serving on %s\n", cfg.ListenAddr)
	return srv.ListenAndServe(ctx)
}
