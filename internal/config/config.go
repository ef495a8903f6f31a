// Package config loads the relay configuration from a YAML file, the
// environment, and defaults, in ascending precedence order for flags set by
// the CLI on top.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config holds the relay's runtime settings.
type Config struct {
	// Listen is the address the HTTP/WebSocket server binds to.
	Listen string `mapstructure:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`

	// ReapInterval is how often the idle reaper scans the registry.
	ReapInterval time.Duration `mapstructure:"reap_interval"`

	// IdleAfter is the session age beyond which the reaper removes it.
	IdleAfter time.Duration `mapstructure:"idle_after"`

	// Origins are the origin patterns allowed to open WebSocket connections.
	Origins []string `mapstructure:"origins"`

	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig configures the optional Redis session directory. An empty Addr
// selects the in-memory directory.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen:       ":8080",
		LogLevel:     "info",
		ReapInterval: 5 * time.Minute,
		IdleAfter:    30 * time.Minute,
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// non-empty), then PARLEY_* environment variables. A `.env` file in the
// working directory is read into the environment first, if present.
func Load(path string) (*Config, error) {
	// Missing .env is the common case, not an error.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:     cfg,
			DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(raw); err != nil {
			return nil, fmt.Errorf("invalid config file: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PARLEY_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("PARLEY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PARLEY_REAP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid PARLEY_REAP_INTERVAL: %w", err)
		}
		cfg.ReapInterval = d
	}
	if v := os.Getenv("PARLEY_IDLE_AFTER"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid PARLEY_IDLE_AFTER: %w", err)
		}
		cfg.IdleAfter = d
	}
	if v := os.Getenv("PARLEY_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("PARLEY_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("PARLEY_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PARLEY_REDIS_DB: %w", err)
		}
		cfg.Redis.DB = db
	}
	return nil
}

// Validate rejects nonsensical settings before the server starts.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.ReapInterval <= 0 {
		return fmt.Errorf("reap_interval must be positive, got %s", c.ReapInterval)
	}
	if c.IdleAfter <= 0 {
		return fmt.Errorf("idle_after must be positive, got %s", c.IdleAfter)
	}
	return nil
}
