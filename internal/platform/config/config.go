// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"
)

// # Store Backends

const (
	// BackendPostgres persists users and messages in PostgreSQL.
	BackendPostgres = "postgres"
	// BackendMemory keeps everything in process memory. Local runs only.
	BackendMemory = "memory"
)

// # Configuration Schema

// Config holds all runtime configuration for the messagely API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// StoreBackend selects the credential and message store implementation.
	StoreBackend string `env:"STORE_BACKEND" envDefault:"postgres"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value store (Redis). Optional: without it delivery notifications are disabled.
	RedisURL string `env:"REDIS_URL"`

	// Cryptographic keys for session token signing
	JWTPrivKeyPath string `env:"JWT_PRIVATE_KEY_PATH,required,notEmpty"`
	JWTPubKeyPath  string `env:"JWT_PUBLIC_KEY_PATH,required,notEmpty"`

	// TokenTTL bounds the lifetime of issued tokens. Zero issues tokens without expiry.
	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"0s"`

	// BcryptCost is the work factor used when hashing passwords.
	BcryptCost int `env:"BCRYPT_COST" envDefault:"12"`

	// Cross-Origin Resource Sharing
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the cross-field rules the struct tags cannot express.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTPrivKeyPath) == "" || strings.TrimSpace(c.JWTPubKeyPath) == "" {
		return errors.New("config: JWT_PRIVATE_KEY_PATH and JWT_PUBLIC_KEY_PATH must not be empty")
	}

	switch c.StoreBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required for the postgres store backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("config: BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	if c.TokenTTL < 0 {
		return errors.New("config: TOKEN_TTL must not be negative")
	}

	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// NotificationsEnabled reports whether a Redis URL was configured.
func (c *Config) NotificationsEnabled() bool {
	return c.RedisURL != ""
}
