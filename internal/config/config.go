package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Server is the web server's configuration, read from the environment.
type Server struct {
	Addr            string        `env:"BRACKETSIM_ADDR" envDefault:":8080"`
	DatabaseDSN     string        `env:"BRACKETSIM_DB" envDefault:"bracket_sim.db?_journal_mode=WAL"`
	MigrationsURL   string        `env:"BRACKETSIM_MIGRATIONS" envDefault:"file://migrations"`
	SessionLifetime time.Duration `env:"BRACKETSIM_SESSION_LIFETIME" envDefault:"24h"`
	LogLevel        string        `env:"BRACKETSIM_LOG_LEVEL" envDefault:"info"`
}

// LoadServer parses Server from the environment.
func LoadServer() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SessionLifetime <= 0 {
		return Server{}, fmt.Errorf("BRACKETSIM_SESSION_LIFETIME must be positive, got %s", cfg.SessionLifetime)
	}
	return cfg, nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (s Server) SlogLevel() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
