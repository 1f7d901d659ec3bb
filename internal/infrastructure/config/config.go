package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	Bridge    BridgeConfig
	Surface   SurfaceConfig
	Fetch     FetchConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8040"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// BridgeConfig holds message bridge configuration.
type BridgeConfig struct {
	ChunkSize     int           `envconfig:"IPC_CHUNK_SIZE" default:"800"`
	TransferTTL   time.Duration `envconfig:"IPC_TRANSFER_TTL" default:"2m"`
	SweepInterval time.Duration `envconfig:"IPC_SWEEP_INTERVAL" default:"30s"`
	MaxPostSize   int           `envconfig:"IPC_MAX_POST_SIZE" default:"1048576"`
}

// SurfaceConfig holds rendering surface configuration.
type SurfaceConfig struct {
	ScriptTimeout time.Duration `envconfig:"SURFACE_SCRIPT_TIMEOUT" default:"5s"`
}

// FetchConfig holds remote document fetch configuration.
type FetchConfig struct {
	Timeout time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s"`
	Retries int           `envconfig:"FETCH_RETRIES" default:"3"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"40"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// MinChunkSize is the smallest accepted bridge chunk size.
const MinChunkSize = 16

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8040",
			Host: "127.0.0.1",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Bridge: BridgeConfig{
			ChunkSize:     800,
			TransferTTL:   2 * time.Minute,
			SweepInterval: 30 * time.Second,
			MaxPostSize:   1 << 20,
		},
		Surface: SurfaceConfig{
			ScriptTimeout: 5 * time.Second,
		},
		Fetch: FetchConfig{
			Timeout: 30 * time.Second,
			Retries: 3,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
		},
	}
}

// Validate checks the configuration for values the bridge cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Bridge.ChunkSize < MinChunkSize {
		errs = append(errs, fmt.Errorf("IPC_CHUNK_SIZE must be at least %d", MinChunkSize))
	}
	if c.Bridge.TransferTTL <= 0 {
		errs = append(errs, errors.New("IPC_TRANSFER_TTL must be positive"))
	}
	if c.Bridge.SweepInterval <= 0 {
		errs = append(errs, errors.New("IPC_SWEEP_INTERVAL must be positive"))
	}
	if c.Bridge.MaxPostSize < c.Bridge.ChunkSize {
		errs = append(errs, errors.New("IPC_MAX_POST_SIZE must not be smaller than IPC_CHUNK_SIZE"))
	}
	if c.Surface.ScriptTimeout <= 0 {
		errs = append(errs, errors.New("SURFACE_SCRIPT_TIMEOUT must be positive"))
	}
	if c.Fetch.Timeout <= 0 {
		errs = append(errs, errors.New("FETCH_TIMEOUT must be positive"))
	}
	if c.Fetch.Retries < 0 {
		errs = append(errs, errors.New("FETCH_RETRIES must not be negative"))
	}
	return errors.Join(errs...)
}

// Addr returns the server listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}
