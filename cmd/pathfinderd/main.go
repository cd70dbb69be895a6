// Command pathfinderd serves the literature navigation API.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/scholarpath/pathfinder"
	"github.com/scholarpath/pathfinder/embedder/openai"
	"github.com/scholarpath/pathfinder/internal/config"
	"github.com/scholarpath/pathfinder/internal/httpapi"
)

var (
	configPath string
	dataDir    string
	port       int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pathfinderd",
		Short: "Hybrid retrieval and clustering server for academic literature",
		Long: `pathfinderd indexes a directory of papers, serves hybrid
(text + metadata) semantic search over them, and groups result sets into
labeled clusters.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	rootCmd.Flags().StringVar(&dataDir, "data-dir", "", "directory of papers to index (overrides config)")
	rootCmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides config)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	// Not an error if absent; environment variables may be set directly.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if dataDir != "" {
		cfg.Indexing.DataDir = dataDir
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	apiKey := os.Getenv(cfg.Embedder.APIKeyEnv)
	embedder, err := openai.NewEmbedder(openai.Options{
		APIKey:    apiKey,
		Model:     cfg.Embedder.Model,
		BaseURL:   cfg.Embedder.BaseURL,
		Dimension: cfg.Embedder.Dimension,
	})
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	engine, err := pathfinder.NewEngine(embedder, pathfinder.EngineConfig{
		MinClusters:   cfg.Clustering.MinClusters,
		MaxClusters:   cfg.Clustering.MaxClusters,
		IndexWorkers:  cfg.Indexing.Workers,
		MinTextLength: cfg.Indexing.MinTextLength,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	if cfg.Indexing.SnapshotDir != "" {
		if err := engine.LoadSnapshot(cfg.Indexing.SnapshotDir); err != nil {
			logger.Info("no snapshot loaded", "dir", cfg.Indexing.SnapshotDir, "reason", err)
		}
	}

	server := httpapi.NewServer(engine, &pathfinder.PlainTextParser{}, httpapi.Options{
		DataDir:     cfg.Indexing.DataDir,
		SnapshotDir: cfg.Indexing.SnapshotDir,
		DefaultTopK: cfg.Retrieval.TopK,
		Logger:      logger,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("starting server", "addr", addr, "model", cfg.Embedder.Model)

	return http.ListenAndServe(addr, server.Router())
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
