// Package config loads the substrate configuration from the environment.
// The core only ever reads these values; it never mutates them.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Config holds every tunable the service substrate consumes.
type Config struct {
	// Sizing of each service's default pool.
	PoolCoreSize  int           `env:"SERVICE_POOL_CORE_SIZE" default:"8"`
	PoolMaxSize   int           `env:"SERVICE_POOL_MAX_SIZE" default:"64"`
	PoolKeepAlive time.Duration `env:"SERVICE_POOL_KEEP_ALIVE" default:"60s"`
	// PoolPerTask switches service pools from the bounded elastic model to
	// one lightweight execution context per submitted unit.
	PoolPerTask bool `env:"SERVICE_POOL_PER_TASK" default:"false"`

	// Sizing of the registry's shared pool, used by the Run/Call gateways.
	SharedPoolCoreSize  int           `env:"SHARED_POOL_CORE_SIZE" default:"8"`
	SharedPoolMaxSize   int           `env:"SHARED_POOL_MAX_SIZE" default:"64"`
	SharedPoolKeepAlive time.Duration `env:"SHARED_POOL_KEEP_ALIVE" default:"60s"`
	SharedPoolPerTask   bool          `env:"SHARED_POOL_PER_TASK" default:"false"`

	// ShutdownTimeout bounds each of the two pool termination phases
	// (graceful drain, then forced cancellation).
	ShutdownTimeout time.Duration `env:"SERVICE_SHUTDOWN_TIMEOUT" default:"5s"`
	// ShutdownGraceDelay is the pause between the last ordinary service and
	// the logging service during global shutdown.
	ShutdownGraceDelay time.Duration `env:"SERVICE_SHUTDOWN_GRACE_DELAY" default:"1s"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

// Load reads the configuration from a .env file (if present) and the process
// environment, then validates it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the built-in defaults without touching the environment.
// Intended for tests and embedded use.
func Default() *Config {
	return &Config{
		PoolCoreSize:        8,
		PoolMaxSize:         64,
		PoolKeepAlive:       60 * time.Second,
		SharedPoolCoreSize:  8,
		SharedPoolMaxSize:   64,
		SharedPoolKeepAlive: 60 * time.Second,
		ShutdownTimeout:     5 * time.Second,
		ShutdownGraceDelay:  time.Second,
		LogLevel:            "info",
		LogFormat:           "text",
	}
}

func validate(cfg *Config) error {
	if cfg.PoolCoreSize < 0 {
		return fmt.Errorf("SERVICE_POOL_CORE_SIZE must not be negative, got %d", cfg.PoolCoreSize)
	}
	if cfg.PoolMaxSize < 1 {
		return fmt.Errorf("SERVICE_POOL_MAX_SIZE must be at least 1, got %d", cfg.PoolMaxSize)
	}
	if cfg.PoolMaxSize < cfg.PoolCoreSize {
		return fmt.Errorf("SERVICE_POOL_MAX_SIZE (%d) must not be lower than SERVICE_POOL_CORE_SIZE (%d)", cfg.PoolMaxSize, cfg.PoolCoreSize)
	}
	if cfg.SharedPoolCoreSize < 0 {
		return fmt.Errorf("SHARED_POOL_CORE_SIZE must not be negative, got %d", cfg.SharedPoolCoreSize)
	}
	if cfg.SharedPoolMaxSize < 1 {
		return fmt.Errorf("SHARED_POOL_MAX_SIZE must be at least 1, got %d", cfg.SharedPoolMaxSize)
	}
	if cfg.SharedPoolMaxSize < cfg.SharedPoolCoreSize {
		return fmt.Errorf("SHARED_POOL_MAX_SIZE (%d) must not be lower than SHARED_POOL_CORE_SIZE (%d)", cfg.SharedPoolMaxSize, cfg.SharedPoolCoreSize)
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("SERVICE_SHUTDOWN_TIMEOUT must be positive, got %s", cfg.ShutdownTimeout)
	}
	if cfg.ShutdownGraceDelay < 0 {
		return fmt.Errorf("SERVICE_SHUTDOWN_GRACE_DELAY must not be negative, got %s", cfg.ShutdownGraceDelay)
	}
	return nil
}
