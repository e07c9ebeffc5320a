// Package config loads the server configuration from defaults, an optional
// TOML file, environment variables and command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/crypto/bcrypt"
)

// Config is the complete server configuration.
type Config struct {
	Addr            string        `toml:"addr"`
	DBPath          string        `toml:"db_path"`
	JWTSecret       string        `toml:"jwt_secret"`
	TokenTTL        time.Duration `toml:"token_ttl"`
	BcryptCost      int           `toml:"bcrypt_cost"`
	LogLevel        string        `toml:"log_level"`
	CORSOrigin      string        `toml:"cors_origin"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

// Default returns the configuration used when nothing overrides it.
// JWTSecret has no default and must be provided.
func Default() Config {
	return Config{
		Addr:            ":8080",
		DBPath:          "./data/todo4.db",
		TokenTTL:        time.Hour,
		BcryptCost:      bcrypt.DefaultCost,
		LogLevel:        "info",
		CORSOrigin:      "*",
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load builds the configuration in priority order:
//  1. Defaults
//  2. TOML file from -config or TODO4_CONFIG
//  3. Environment variables
//  4. CLI flags
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := Default()

	configFile := fs.String("config", os.Getenv("TODO4_CONFIG"), "path to a TOML config file")
	addr := fs.String("addr", "", "listen address (overrides config)")
	dbPath := fs.String("db", "", "SQLite database path (overrides config)")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	if *configFile != "" {
		if _, err := toml.DecodeFile(*configFile, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", *configFile, err)
		}
	}

	if err := loadFromEnv(&cfg); err != nil {
		return nil, err
	}

	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadFromEnv overrides cfg from environment variables.
func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("TODO4_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TOKEN_TTL %q: %w", v, err)
		}
		cfg.TokenTTL = ttl
	}
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		cost, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid BCRYPT_COST %q: %w", v, err)
		}
		cfg.BcryptCost = cost
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CORS_ORIGIN"); v != "" {
		cfg.CORSOrigin = v
	}
	return nil
}

// Validate reports the first setting the server cannot start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("jwt_secret is required (set JWT_SECRET)")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl must be positive, got %s", c.TokenTTL)
	}
	if c.BcryptCost != 0 && (c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost) {
		return fmt.Errorf("bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	return nil
}
