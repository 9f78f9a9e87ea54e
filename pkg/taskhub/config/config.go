package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"PORT" envDefault:"8080"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	DSN string `env:"TASKHUB_DB_PATH" envDefault:"taskhub.db"`
}

// AuthConfig holds JWT and bootstrap admin configuration.
type AuthConfig struct {
	JWTSecret     string        `env:"JWT_SECRET"`
	TokenDuration time.Duration `env:"JWT_TOKEN_DURATION" envDefault:"24h"`
	AdminUsername string        `env:"TASKHUB_ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string        `env:"TASKHUB_ADMIN_PASSWORD" envDefault:"changeme"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(&cfg.Server); err != nil {
		return nil, fmt.Errorf("parsing server config: %w", err)
	}
	if err := env.Parse(&cfg.Database); err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if err := env.Parse(&cfg.Auth); err != nil {
		return nil, fmt.Errorf("parsing auth config: %w", err)
	}

	return cfg, nil
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
