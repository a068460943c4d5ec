package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/joho/godotenv"

	"github.com/rezkam/parish/internal/env"
)

// DefaultEnvFile is read before the environment when present.
// Variables already set in the environment win.
const DefaultEnvFile = ".env"

// ServerConfig holds all configuration for the server binary.
type ServerConfig struct {
	Database        DatabaseConfig
	HTTP            HTTPConfig
	Listing         ListingConfig
	Observability   ObservabilityConfig
	LogLevel        string        `env:"PARISH_LOG_LEVEL" default:"info"`
	ShutdownTimeout time.Duration `env:"PARISH_SHUTDOWN_TIMEOUT" default:"10s"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Host              string        `env:"PARISH_HTTP_HOST"`
	Port              string        `env:"PARISH_HTTP_PORT"`
	ReadTimeout       time.Duration `env:"PARISH_HTTP_READ_TIMEOUT"`
	WriteTimeout      time.Duration `env:"PARISH_HTTP_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `env:"PARISH_HTTP_IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `env:"PARISH_HTTP_READ_HEADER_TIMEOUT"`
	MaxHeaderBytes    int           `env:"PARISH_HTTP_MAX_HEADER_BYTES"`
	MaxQueryBytes     int           `env:"PARISH_HTTP_MAX_QUERY_BYTES"`
}

// ObservabilityConfig holds observability configuration.
type ObservabilityConfig struct {
	OTelEnabled bool   `env:"PARISH_OTEL_ENABLED"`
	ServiceName string `env:"OTEL_SERVICE_NAME" default:"parish"`
}

// LoadServerConfig loads and validates server configuration from the
// environment, after reading envFile if it exists.
func LoadServerConfig(envFile string) (*ServerConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
			}
		} else {
			slog.Info("Loaded environment file", "path", envFile)
		}
	}

	cfg := &ServerConfig{}

	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}

	return cfg, nil
}

// SlogLevel parses LogLevel. Unknown values fall back to info.
func (c *ServerConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
