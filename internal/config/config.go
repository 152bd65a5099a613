package config

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config is the process-level configuration, populated from the environment.
// A .env file is honored for local runs.
type Config struct {
	Server struct {
		Addr            string        `env:"SERVER_ADDR,default=:8080"`
		ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT,default=15s"`
		WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT,default=30s"`
		ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`
	}

	Database struct {
		// DSN selects Postgres persistence. Empty keeps the in-memory store,
		// which is only suitable for development.
		DSN          string `env:"DATABASE_DSN"`
		MaxOpenConns int    `env:"DATABASE_MAX_OPEN_CONNS,default=20"`
		MaxIdleConns int    `env:"DATABASE_MAX_IDLE_CONNS,default=5"`
	}

	Redis struct {
		// Addr selects the statistics cache. Empty disables caching.
		Addr     string `env:"REDIS_ADDR"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB,default=0"`
	}

	Notify struct {
		Buffer    int    `env:"NOTIFY_BUFFER,default=256"`
		Templates string `env:"NOTIFY_TEMPLATES"`
	}

	Offers struct {
		SweepSchedule string `env:"OFFER_SWEEP_SCHEDULE,default=@hourly"`
	}

	Audit struct {
		File string `env:"AUDIT_FILE"`
		Size int    `env:"AUDIT_SIZE,default=200"`
	}

	Logging struct {
		Level  string `env:"LOG_LEVEL,default=info"`
		Format string `env:"LOG_FORMAT,default=json"`
	}
}

// Load reads configuration from the environment, after loading .env if one
// exists.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	return cfg, nil
}
