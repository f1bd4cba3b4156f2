package repository

import (
	"time"

	"github.com/okian/eventsoft/pkg/logger"
)

// Option applies a configuration option to a store.
type Option func(*settings)

type settings struct {
	now             func() time.Time
	log             logger.Logger
	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration
	autoMigrate     bool
}

func defaultSettings() settings {
	return settings{
		now:             time.Now,
		log:             logger.Nop(),
		maxOpenConns:    20,
		maxIdleConns:    5,
		connMaxLifetime: 5 * time.Minute,
		autoMigrate:     true,
	}
}

// WithClock overrides the time source for CreatedAt/RegisteredAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithPool sizes the SQL connection pool. Ignored by the memory store.
func WithPool(maxOpen, maxIdle int, maxLifetime time.Duration) Option {
	return func(s *settings) {
		if maxOpen > 0 {
			s.maxOpenConns = maxOpen
		}
		if maxIdle >= 0 {
			s.maxIdleConns = maxIdle
		}
		if maxLifetime > 0 {
			s.connMaxLifetime = maxLifetime
		}
	}
}

// WithAutoMigrate toggles schema migration on open. Ignored by the memory store.
func WithAutoMigrate(enabled bool) Option {
	return func(s *settings) {
		s.autoMigrate = enabled
	}
}
