// Package config reads the runner configuration from the environment.
// Only lifecycle concerns live here (directories, the optional archive
// database, concurrency); statistical parameters are always explicit
// arguments of the analysis functions, never process-wide state.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config represents the complete runner configuration
type Config struct {
	Paths   PathConfig
	Archive ArchiveConfig
	Runner  RunnerConfig
}

// PathConfig holds the study folder layout: input datasets in Data,
// generated tables in Output.
type PathConfig struct {
	DataDir   string
	OutputDir string
}

// ArchiveConfig holds the optional result archive database settings
type ArchiveConfig struct {
	DatabaseURL string
	Enabled     bool
}

// RunnerConfig holds batch execution settings
type RunnerConfig struct {
	MaxConcurrent int64
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Paths: PathConfig{
			DataDir:   getEnv("DATA_DIR", "data"),
			OutputDir: getEnv("OUTPUT_DIR", "output"),
		},
		Archive: ArchiveConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
		},
		Runner: RunnerConfig{
			MaxConcurrent: getEnvInt64("MAX_CONCURRENT", 4),
		},
	}
	cfg.Archive.Enabled = cfg.Archive.DatabaseURL != ""

	if cfg.Runner.MaxConcurrent < 1 {
		return nil, fmt.Errorf("MAX_CONCURRENT must be at least 1, got %d", cfg.Runner.MaxConcurrent)
	}
	if cfg.Paths.DataDir == "" {
		return nil, fmt.Errorf("DATA_DIR must not be empty")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
