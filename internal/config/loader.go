package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix      = "EVENTSOFT_"
	envConfigFile  = "EVENTSOFT_CONFIG"
	envDotEnvFile  = "EVENTSOFT_ENV_FILE"
	defaultEnvFile = ".env"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if EVENTSOFT_CONFIG is set
//  3. env (prefix EVENTSOFT_), after merging a .env file into the process env
//
// The .env file never overrides variables already present in the environment.
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	if path := os.Getenv(envConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// EVENTSOFT_DATABASE_DSN -> database_dsn (flat keys, underscores kept).
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv() error {
	path := os.Getenv(envDotEnvFile)
	if path == "" {
		path = defaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
	}
	return nil
}

// Validate checks the invariants Load enforces.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres, StorageMySQL:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("%w: database_dsn is required for %s storage", ErrInvalidConfig, c.Storage)
		}
	default:
		return fmt.Errorf("%w: unknown storage %q", ErrInvalidConfig, c.Storage)
	}
	if c.IdempotencyCacheSize <= 0 {
		return fmt.Errorf("%w: idempotency_cache_size must be positive", ErrInvalidConfig)
	}
	if c.MaxRankingSize < 0 {
		return fmt.Errorf("%w: max_ranking_size must not be negative", ErrInvalidConfig)
	}
	if c.DBMaxOpenConns < 0 || c.DBMaxIdleConns < 0 || c.DBConnMaxLifetimeSec < 0 {
		return fmt.Errorf("%w: database pool settings must not be negative", ErrInvalidConfig)
	}
	return nil
}
