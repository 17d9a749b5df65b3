// Package config reads the application configuration from environment
// variables. A .env file, when present, is loaded by the CLI entrypoint
// before this package runs.
package config

import (
	"os"
	"strconv"

	"spatialview/domain/core"
)

// Config represents the complete application configuration
type Config struct {
	Storage StorageConfig
	Run     RunConfig
	Data    DataConfig
}

// StorageConfig selects where run results are persisted. When DatabaseURL
// is empty the file store under ResultsDir is used.
type StorageConfig struct {
	ResultsDir  string
	DatabaseURL string
}

// RunConfig holds engine defaults overridable per invocation
type RunConfig struct {
	Seed    int64
	Folds   int
	Model   string
	Workers int
}

// DataConfig holds input file paths
type DataConfig struct {
	MatrixFile string
	CoordsFile string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Storage: StorageConfig{
			ResultsDir:  getEnvOrDefault("RESULTS_DIR", "./results"),
			DatabaseURL: getEnvOrDefault("DATABASE_URL", ""),
		},
		Run: RunConfig{
			Seed:    getEnvInt64OrDefault("RUN_SEED", 42),
			Folds:   getEnvIntOrDefault("RUN_FOLDS", 5),
			Model:   getEnvOrDefault("RUN_MODEL", "ensemble"),
			Workers: getEnvIntOrDefault("RUN_WORKERS", 0),
		},
		Data: DataConfig{
			MatrixFile: getEnvOrDefault("MATRIX_FILE", ""),
			CoordsFile: getEnvOrDefault("COORDS_FILE", ""),
		},
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Storage.ResultsDir == "" && cfg.Storage.DatabaseURL == "" {
		return core.NewConfigError("RESULTS_DIR or DATABASE_URL is required")
	}
	if cfg.Run.Folds < 2 {
		return core.NewConfigError("RUN_FOLDS must be at least 2")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
