// Package config reads process settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	FeedPostgres = "postgres"
	FeedRedis    = "redis"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	StoreBackend string `env:"STORE_BACKEND" envDefault:"memory"`
	DatabaseURL  string `env:"DATABASE_URL"`
	FeedBackend  string `env:"FEED_BACKEND" envDefault:"postgres"`
	RedisURL     string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	AutoMigrate  bool   `env:"AUTO_MIGRATE" envDefault:"false"`

	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`

	RoundsPerGame int    `env:"ROUNDS_PER_GAME" envDefault:"5"`
	QuestionsFile string `env:"QUESTIONS_FILE"`

	AutoReveal           bool          `env:"AUTO_REVEAL" envDefault:"true"`
	RevealCenterDuration time.Duration `env:"REVEAL_CENTER_DURATION" envDefault:"2s"`
	RevealTopDelay       time.Duration `env:"REVEAL_TOP_DELAY" envDefault:"3s"`
	RevealDelay          time.Duration `env:"REVEAL_DELAY" envDefault:"1s"`
	RefetchInterval      time.Duration `env:"REFETCH_INTERVAL" envDefault:"15s"`
	ResubscribeBackoff   time.Duration `env:"RESUBSCRIBE_BACKOFF" envDefault:"1s"`
}

// Load parses the process environment.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, cfg.Validate()
}

// Default returns the tag defaults without reading the environment.
func Default() Config {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Environment: map[string]string{}})
	if err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

func (c Config) Validate() error {
	switch c.StoreBackend {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=%s", StorePostgres)
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %s or %s, got %q", StoreMemory, StorePostgres, c.StoreBackend)
	}
	if c.FeedBackend != FeedPostgres && c.FeedBackend != FeedRedis {
		return fmt.Errorf("FEED_BACKEND must be %s or %s, got %q", FeedPostgres, FeedRedis, c.FeedBackend)
	}
	if c.RoundsPerGame <= 0 {
		return fmt.Errorf("ROUNDS_PER_GAME must be positive, got %d", c.RoundsPerGame)
	}
	return nil
}
