package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/docsmith/internal/config"
	"github.com/jackzampolin/docsmith/internal/fetcher"
	"github.com/jackzampolin/docsmith/internal/generator"
	"github.com/jackzampolin/docsmith/internal/home"
	"github.com/jackzampolin/docsmith/internal/metrics"
	"github.com/jackzampolin/docsmith/internal/pipeline"
	"github.com/jackzampolin/docsmith/internal/server"
	"github.com/jackzampolin/docsmith/internal/store"
	"github.com/jackzampolin/docsmith/internal/svcctx"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the docsmith server",
	Long: `Start the docsmith HTTP server and pipeline worker.

The server accepts generation requests, the worker drains the job queue
and runs the documentation pipeline, and both share state through the
SQLite job store so interrupted jobs are visible after a restart.

Examples:
  docsmith serve                 # Start on the configured host and port
  docsmith serve --port 3000     # Override the listen port
  docsmith serve --host 0.0.0.0  # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Load .env if present so ${OPENROUTER_API_KEY} style references
		// resolve without exporting.
		_ = godotenv.Load()

		// Set up logger
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		// Get home directory
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		// Load configuration and keep it hot-reloading
		mgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		mgr.WatchConfig()
		cfg := mgr.Get()
		logger.Info("configuration loaded", "summary", cfg.Summary())

		// Open the job store
		dbPath := cfg.Store.Path
		if dbPath == "" {
			dbPath = h.DatabasePath()
		}
		st, err := store.New(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open job store: %w", err)
		}
		defer st.Close()

		m := metrics.New()

		// Generation stack: HTTP client wrapped with retry on context
		// overflow and a single-flight gate.
		client := generator.NewClient(generator.ClientConfig{
			BaseURL:     cfg.Generator.BaseURL,
			APIKey:      cfg.ResolvedAPIKey(),
			Model:       cfg.Generator.Model,
			Temperature: cfg.Generator.Temperature,
			MaxTokens:   cfg.Generator.MaxTokens,
			Timeout:     time.Duration(cfg.Generator.TimeoutSeconds) * time.Second,
			Logger:      logger,
		})
		gen := generator.Gated(generator.Retrying(
			generator.Recorded(client, m, logger),
			generator.DefaultRetryPolicy(),
		))

		fetch := fetcher.NewGitHub(fetcher.GitHubConfig{
			APIBase: cfg.GitHub.APIBase,
			Token:   cfg.ResolvedGitHubToken(),
			Logger:  logger,
		})

		outputDir := cfg.Output.Dir
		if outputDir == "" {
			outputDir = h.DocumentationPath()
		}
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		compiler := pipeline.NewCompiler(pipeline.CompilerConfig{
			OutputDir: outputDir,
			Logger:    logger,
		})

		queue := pipeline.NewQueue(cfg.Queue.Size, m)
		runner := pipeline.NewRunner(pipeline.RunnerConfig{
			Store:     st,
			Fetcher:   fetch,
			Generator: gen,
			Compiler:  compiler,
			Metrics:   m,
			Logger:    logger,
		})
		worker := pipeline.NewWorker(pipeline.WorkerConfig{
			Queue:  queue,
			Store:  st,
			Runner: runner,
			Logger: logger,
		})
		go worker.Start(ctx)

		submitter := pipeline.NewSubmitter(pipeline.SubmitterConfig{
			Store:  st,
			Queue:  queue,
			Logger: logger,
		})

		host := cfg.Server.Host
		if serveHost != "" {
			host = serveHost
		}
		port := cfg.Server.Port
		if servePort != 0 {
			port = servePort
		}

		srv, err := server.New(server.Config{
			Host: host,
			Port: port,
			Services: &svcctx.Services{
				Store:     st,
				Submitter: submitter,
				Config:    mgr,
				Logger:    logger,
				Home:      h,
				Metrics:   m,
			},
			OutputDir: outputDir,
			Logger:    logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")

	rootCmd.AddCommand(serveCmd)
}
