// Package config defines service configuration structures and loading hooks.
package config

import (
	"time"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageMySQL    = "mysql"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Storage selects the repository backend: memory, postgres or mysql.
	Storage string `koanf:"storage"`

	// DatabaseDSN is required for the SQL backends.
	DatabaseDSN string `koanf:"database_dsn"`

	DBMaxOpenConns       int `koanf:"db_max_open_conns"`
	DBMaxIdleConns       int `koanf:"db_max_idle_conns"`
	DBConnMaxLifetimeSec int `koanf:"db_conn_max_lifetime_sec"`

	// AutoMigrate runs schema migration on startup for SQL backends.
	AutoMigrate bool `koanf:"auto_migrate"`

	// IdempotencyCacheSize bounds the number of remembered rating batch keys.
	IdempotencyCacheSize int `koanf:"idempotency_cache_size"`

	// MaxRankingSize caps each ranking list returned over HTTP. Zero means no cap.
	MaxRankingSize int `koanf:"max_ranking_size"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		Storage:              StorageMemory,
		DBMaxOpenConns:       20,
		DBMaxIdleConns:       5,
		DBConnMaxLifetimeSec: 300,
		AutoMigrate:          true,
		IdempotencyCacheSize: 10_000,
		MaxRankingSize:       0,
	}
}

// DBConnMaxLifetime returns the connection lifetime as a duration.
func (c *Config) DBConnMaxLifetime() time.Duration {
	return time.Duration(c.DBConnMaxLifetimeSec) * time.Second
}
