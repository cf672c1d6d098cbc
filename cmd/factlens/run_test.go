package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/factlens/factlens/internal/artifact"
	"github.com/factlens/factlens/internal/config"
	"github.com/factlens/factlens/internal/model"
)

// TestNewRunCmd tests the run command creation.
func TestNewRunCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRunCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "run [article-url]" {
			t.Errorf("expected use 'run [article-url]', got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})

	t.Run("has long description", func(t *testing.T) {
		t.Parallel()
		if cmd.Long == "" {
			t.Error("expected non-empty long description")
		}
	})

	t.Run("has store-dir flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("store-dir")
		if flag == nil {
			t.Fatal("expected store-dir flag")
		}
		if flag.Shorthand != "s" {
			t.Errorf("expected shorthand 's', got %q", flag.Shorthand)
		}
	})

	t.Run("has timeout flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("timeout")
		if flag == nil {
			t.Fatal("expected timeout flag")
		}
		if flag.Shorthand != "t" {
			t.Errorf("expected shorthand 't', got %q", flag.Shorthand)
		}
	})

	t.Run("has join-timeout flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("join-timeout")
		if flag == nil {
			t.Fatal("expected join-timeout flag")
		}
		if flag.DefValue != "0s" {
			t.Errorf("expected default '0s', got %q", flag.DefValue)
		}
	})

	t.Run("has config flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("config")
		if flag == nil {
			t.Fatal("expected config flag")
		}
		if flag.Shorthand != "c" {
			t.Errorf("expected shorthand 'c', got %q", flag.Shorthand)
		}
	})

	t.Run("has json flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("json")
		if flag == nil {
			t.Fatal("expected json flag")
		}
		if flag.Shorthand != "j" {
			t.Errorf("expected shorthand 'j', got %q", flag.Shorthand)
		}
	})

	t.Run("has markdown flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("markdown")
		if flag == nil {
			t.Fatal("expected markdown flag")
		}
		if flag.Shorthand != "m" {
			t.Errorf("expected shorthand 'm', got %q", flag.Shorthand)
		}
	})

	t.Run("has output flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("output")
		if flag == nil {
			t.Fatal("expected output flag")
		}
		if flag.Shorthand != "o" {
			t.Errorf("expected shorthand 'o', got %q", flag.Shorthand)
		}
	})

	t.Run("has no-db flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("no-db")
		if flag == nil {
			t.Fatal("expected no-db flag")
		}
		if flag.DefValue != "false" {
			t.Errorf("expected default 'false', got %q", flag.DefValue)
		}
	})
}

// TestSetupLogger tests the logger setup.
func TestSetupLogger(t *testing.T) {
	t.Parallel()

	t.Run("creates logger for verbose mode", func(t *testing.T) {
		t.Parallel()
		logger := setupLogger(true)
		if logger == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("creates logger for non-verbose mode", func(t *testing.T) {
		t.Parallel()
		logger := setupLogger(false)
		if logger == nil {
			t.Error("expected non-nil logger")
		}
	})
}

// TestGetVerboseFlag tests the verbose flag retrieval.
func TestGetVerboseFlag(t *testing.T) {
	t.Run("returns false when flag not set", func(t *testing.T) {
		cmd := NewRunCmd()
		result := getVerboseFlag(cmd)
		if result {
			t.Error("expected false when flag not set")
		}
	})

	t.Run("returns value from parent verbose flag", func(t *testing.T) {
		root := NewRootCmd()
		_ = root.PersistentFlags().Set("verbose", "true")

		runCmd, _, err := root.Find([]string{"run"})
		if err != nil {
			t.Fatalf("failed to find run command: %v", err)
		}

		result := getVerboseFlag(runCmd)
		if !result {
			t.Error("expected true from parent verbose flag")
		}
	})
}

// TestBuildConfig tests configuration building from flags.
func TestBuildConfig(t *testing.T) {
	t.Run("builds config with default values", func(t *testing.T) {
		cmd := NewRunCmd()
		cfg, err := buildConfig(cmd, []string{"https://example.com/news"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg == nil {
			t.Fatal("expected non-nil config")
		}
		if len(cfg.Targets) != 1 || cfg.Targets[0] != "https://example.com/news" {
			t.Errorf("expected targets [https://example.com/news], got %v", cfg.Targets)
		}
		if cfg.StoreDir == "" {
			t.Error("expected non-empty default store directory")
		}
		if cfg.Timeout != config.DefaultTimeout {
			t.Errorf("expected timeout %s, got %s", config.DefaultTimeout, cfg.Timeout)
		}
		if !cfg.SaveToDB {
			t.Error("expected SaveToDB to be true by default")
		}
	})

	t.Run("builds config with custom store directory", func(t *testing.T) {
		cmd := NewRunCmd()
		_ = cmd.Flags().Set("store-dir", "/tmp/factlens-store")
		cfg, err := buildConfig(cmd, []string{"https://example.com/news"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.StoreDir != "/tmp/factlens-store" {
			t.Errorf("expected StoreDir '/tmp/factlens-store', got %q", cfg.StoreDir)
		}
	})

	t.Run("builds config with custom join timeout", func(t *testing.T) {
		cmd := NewRunCmd()
		_ = cmd.Flags().Set("join-timeout", "2m")
		cfg, err := buildConfig(cmd, []string{"https://example.com/news"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.JoinTimeout != 2*time.Minute {
			t.Errorf("expected JoinTimeout 2m, got %s", cfg.JoinTimeout)
		}
	})

	t.Run("builds config with JSON flag", func(t *testing.T) {
		cmd := NewRunCmd()
		_ = cmd.Flags().Set("json", "true")
		cfg, err := buildConfig(cmd, []string{"https://example.com/news"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !cfg.JSONReport {
			t.Error("expected JSONReport to be true")
		}
	})

	t.Run("builds config with no-db flag", func(t *testing.T) {
		cmd := NewRunCmd()
		_ = cmd.Flags().Set("no-db", "true")
		cfg, err := buildConfig(cmd, []string{"https://example.com/news"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.SaveToDB {
			t.Error("expected SaveToDB to be false")
		}
	})

	t.Run("builds config with multiple targets", func(t *testing.T) {
		cmd := NewRunCmd()
		cfg, err := buildConfig(cmd, []string{
			"https://example.com/a",
			"https://example.com/b",
			"https://example.com/c",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(cfg.Targets) != 3 {
			t.Errorf("expected 3 targets, got %d", len(cfg.Targets))
		}
	})

	t.Run("builds config with valid config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "factlens.yaml")

		content := []byte(`
defaults:
  minContentLength: 20
sites:
  example.com:
    cookie: consent=accepted
`)
		if err := os.WriteFile(configPath, content, 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cmd := NewRunCmd()
		_ = cmd.Flags().Set("config", configPath)
		cfg, err := buildConfig(cmd, []string{"https://example.com/news"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.SiteConfigs == nil {
			t.Fatal("expected SiteConfigs to be loaded")
		}
		if cfg.SiteConfigs.Defaults.MinContentLength != 20 {
			t.Errorf("expected default minContentLength 20, got %d", cfg.SiteConfigs.Defaults.MinContentLength)
		}
		if cfg.SiteConfigs.Sites["example.com"].Cookie != "consent=accepted" {
			t.Errorf("expected site cookie, got %q", cfg.SiteConfigs.Sites["example.com"].Cookie)
		}
	})

	t.Run("returns error for invalid config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "invalid.yaml")

		content := []byte(`{invalid yaml`)
		if err := os.WriteFile(configPath, content, 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cmd := NewRunCmd()
		_ = cmd.Flags().Set("config", configPath)
		_, err := buildConfig(cmd, []string{"https://example.com/news"})
		if err == nil {
			t.Fatal("expected error for invalid config file")
		}
	})

	t.Run("returns error for missing explicit config file", func(t *testing.T) {
		cmd := NewRunCmd()
		_ = cmd.Flags().Set("config", filepath.Join(t.TempDir(), "missing.yaml"))
		_, err := buildConfig(cmd, []string{"https://example.com/news"})
		if err == nil {
			t.Fatal("expected error for missing config file")
		}
	})

	t.Run("builds config with output file", func(t *testing.T) {
		cmd := NewRunCmd()
		_ = cmd.Flags().Set("output", "/tmp/verdict.json")
		cfg, err := buildConfig(cmd, []string{"https://example.com/news"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.ReportFile != "/tmp/verdict.json" {
			t.Errorf("expected ReportFile '/tmp/verdict.json', got %q", cfg.ReportFile)
		}
	})
}

// TestBuildScheduler tests scheduler assembly.
func TestBuildScheduler(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	t.Run("uses configured stage command", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.StoreDir = t.TempDir()
		cfg.StageCommand = []string{"/bin/true"}

		store, err := artifact.NewStore(cfg.StoreDir)
		if err != nil {
			t.Fatalf("failed to create store: %v", err)
		}

		scheduler, err := buildScheduler(cfg, store, logger)
		if err != nil {
			t.Fatalf("buildScheduler() error = %v", err)
		}
		if scheduler == nil {
			t.Fatal("expected non-nil scheduler")
		}
	})

	t.Run("defaults to the current executable", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.StoreDir = t.TempDir()

		store, err := artifact.NewStore(cfg.StoreDir)
		if err != nil {
			t.Fatalf("failed to create store: %v", err)
		}

		scheduler, err := buildScheduler(cfg, store, logger)
		if err != nil {
			t.Fatalf("buildScheduler() error = %v", err)
		}
		if scheduler == nil {
			t.Fatal("expected non-nil scheduler")
		}
	})
}

// TestRunAnalysisNoTargets tests that runAnalysis via Validate rejects
// an empty target list.
func TestRunRunCmdNoArgs(t *testing.T) {
	t.Parallel()

	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{"run"})

	err := rootCmd.Execute()
	if err == nil {
		t.Error("expected error for no arguments")
	}
	if !strings.Contains(err.Error(), "no target") {
		t.Errorf("expected 'no target' error, got: %v", err)
	}
}

// TestRunRunCmdConflictingFormats tests run with both --json and --markdown.
func TestRunRunCmdConflictingFormats(t *testing.T) {
	t.Parallel()

	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{"run", "--json", "--markdown", "https://example.com/news"})

	err := rootCmd.Execute()
	if err == nil {
		t.Error("expected error for conflicting report formats")
	}
	if !strings.Contains(err.Error(), "conflicting report formats") {
		t.Errorf("expected 'conflicting report formats' error, got: %v", err)
	}
}

// TestRunAnalysisFailedStage tests that a failing stage surfaces as an
// error after all targets are attempted.
func TestRunAnalysisFailedStage(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.StoreDir = t.TempDir()
	cfg.Targets = []string{"https://example.com/news"}
	cfg.SaveToDB = false
	// A stage command that exits cleanly without producing artifacts is
	// judged a failure.
	cfg.StageCommand = []string{"true"}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	err := runAnalysis(context.Background(), cfg, logger)
	if err == nil {
		t.Error("expected error when the scrape stage produces no artifact")
	}
}

// TestRunAnalysisWithContextCancellation tests that runAnalysis handles
// context cancellation.
func TestRunAnalysisWithContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := config.NewConfig()
	cfg.StoreDir = t.TempDir()
	cfg.Targets = []string{"https://example.com/news"}
	cfg.SaveToDB = false
	cfg.StageCommand = []string{"true"}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	err := runAnalysis(ctx, cfg, logger)
	if err == nil {
		t.Error("expected error due to cancelled context")
	}
}

// TestOutputReport tests the report output functionality.
func TestOutputReport(t *testing.T) {
	const subject = "https://example.com/news/article"

	seedStore := func(t *testing.T) *artifact.Store {
		t.Helper()

		store, err := artifact.NewStore(t.TempDir())
		if err != nil {
			t.Fatalf("failed to create store: %v", err)
		}

		if err := store.Write(artifact.Scrape, subject, &model.ScrapeRecord{
			Success: true,
			URL:     subject,
			Title:   "Example Article",
		}); err != nil {
			t.Fatalf("failed to seed scrape record: %v", err)
		}
		if err := store.Write(artifact.Verdict, subject, model.NewVerdict("Likely REAL.")); err != nil {
			t.Fatalf("failed to seed verdict: %v", err)
		}
		return store
	}

	t.Run("outputs JSON report to file", func(t *testing.T) {
		store := seedStore(t)
		outputPath := filepath.Join(t.TempDir(), "report.json")

		cfg := &config.Config{
			JSONReport: true,
			ReportFile: outputPath,
		}

		if err := outputReport(cfg, store, subject); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}

		var result map[string]interface{}
		if err := json.Unmarshal(content, &result); err != nil {
			t.Fatalf("failed to parse JSON: %v", err)
		}
		if result["url"] != subject {
			t.Errorf("expected url %q, got %v", subject, result["url"])
		}
	})

	t.Run("creates parent directories", func(t *testing.T) {
		store := seedStore(t)
		outputPath := filepath.Join(t.TempDir(), "subdir", "nested", "report.json")

		cfg := &config.Config{
			JSONReport: true,
			ReportFile: outputPath,
		}

		if err := outputReport(cfg, store, subject); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := os.Stat(outputPath); os.IsNotExist(err) {
			t.Error("expected output file to be created in nested directory")
		}
	})

	t.Run("outputs text report to file", func(t *testing.T) {
		store := seedStore(t)
		outputPath := filepath.Join(t.TempDir(), "report.txt")

		cfg := &config.Config{
			ReportFile: outputPath,
		}

		if err := outputReport(cfg, store, subject); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}
		if !strings.Contains(string(content), "Likely REAL.") {
			t.Error("expected report to contain the verdict summary")
		}
	})

	t.Run("outputs markdown report to file", func(t *testing.T) {
		store := seedStore(t)
		outputPath := filepath.Join(t.TempDir(), "report.md")

		cfg := &config.Config{
			MarkdownReport: true,
			ReportFile:     outputPath,
		}

		if err := outputReport(cfg, store, subject); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}
		if len(content) == 0 {
			t.Error("expected non-empty markdown report")
		}
	})

	t.Run("returns error for unknown subject", func(t *testing.T) {
		store := seedStore(t)

		cfg := &config.Config{
			ReportFile: filepath.Join(t.TempDir(), "report.txt"),
		}

		if err := outputReport(cfg, store, "https://example.com/other"); err == nil {
			t.Error("expected error for a subject without artifacts")
		}
	})
}
