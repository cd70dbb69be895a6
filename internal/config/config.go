// Package config loads the server configuration from YAML, filling in
// defaults for anything the file omits. A missing file is not an error and
// yields the full default configuration.
package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// EmbedderConfig configures the OpenAI-compatible embedder.
type EmbedderConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
}

// RetrievalConfig tunes search defaults.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// ClusteringConfig bounds automatic group-count selection.
type ClusteringConfig struct {
	MinClusters int `yaml:"min_clusters"`
	MaxClusters int `yaml:"max_clusters"`
}

// IndexingConfig tunes the indexing pipeline.
type IndexingConfig struct {
	DataDir       string `yaml:"data_dir"`
	Workers       int    `yaml:"workers"`
	MinTextLength int    `yaml:"min_text_length"`
	SnapshotDir   string `yaml:"snapshot_dir"`
}

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Embedder   EmbedderConfig   `yaml:"embedder"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Clustering ClusteringConfig `yaml:"clustering"`
	Indexing   IndexingConfig   `yaml:"indexing"`
	LogLevel   string           `yaml:"log_level"`
}

// Load reads a config from the given path. If the file does not exist,
// returns defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the reference configuration.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5001
	}
	if cfg.Embedder.APIKeyEnv == "" {
		cfg.Embedder.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = "text-embedding-3-small"
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 10
	}
	if cfg.Clustering.MinClusters == 0 {
		cfg.Clustering.MinClusters = 3
	}
	if cfg.Clustering.MaxClusters == 0 {
		cfg.Clustering.MaxClusters = 10
	}
	if cfg.Indexing.DataDir == "" {
		cfg.Indexing.DataDir = "data"
	}
	if cfg.Indexing.Workers == 0 {
		cfg.Indexing.Workers = 4
	}
	if cfg.Indexing.MinTextLength == 0 {
		cfg.Indexing.MinTextLength = 100
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}
