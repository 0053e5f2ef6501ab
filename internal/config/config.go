// Package config loads process configuration from the environment, with
// command-line flags taking precedence.
package config

import (
	"errors"
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds server and runner configuration.
type Config struct {
	Addr          string `env:"MECHDUEL_ADDR" envDefault:":8080"`
	DBPath        string `env:"MECHDUEL_DB_PATH" envDefault:"mechduel.db"`
	LogLevel      string `env:"MECHDUEL_LOG_LEVEL" envDefault:"info"`
	LogEncoding   string `env:"MECHDUEL_LOG_ENCODING" envDefault:"console"`
	AllowedOrigin string `env:"MECHDUEL_ALLOWED_ORIGIN" envDefault:"*"`
	// Seed fixes the dice of new matches. Zero picks a random seed per match.
	Seed int64 `env:"MECHDUEL_SEED" envDefault:"0"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Bind registers the common flags on fs with cfg's current values as
// defaults.
func (cfg *Config) Bind(fs *flag.FlagSet) {
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogEncoding, "log-encoding", cfg.LogEncoding, "log encoding (console or json)")
	fs.StringVar(&cfg.AllowedOrigin, "origin", cfg.AllowedOrigin, "allowed CORS and websocket origin")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "dice seed for new matches (0 = random)")
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	if fs == nil {
		return Config{}, errors.New("flag parser is required")
	}
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Bind(fs)
	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
