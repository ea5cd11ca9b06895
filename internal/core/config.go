package core

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the main configuration for feedwatch
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Log      LogConfig      `json:"log"`
	Features FeatureConfig  `json:"features"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port            int           `json:"port"`
	Host            string        `json:"host"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// DatabaseConfig contains database-related configuration
type DatabaseConfig struct {
	// Path of the sqlite file; empty keeps state in memory only
	Path string `json:"path"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// FeatureConfig contains feature-specific configuration
type FeatureConfig struct {
	RSS RSSConfig `json:"rss"`
}

// RSSConfig contains feed aggregation configuration
type RSSConfig struct {
	Enabled      bool          `json:"enabled"`
	PollInterval time.Duration `json:"poll_interval"`
	FetchTimeout time.Duration `json:"fetch_timeout"`
	UserAgent    string        `json:"user_agent"`
	// FetchProxy is prepended to feed URLs when fetching, never stored
	FetchProxy string `json:"fetch_proxy"`
	IDStrategy string `json:"id_strategy"`
}

// ID generation strategies
const (
	IDStrategySequence = "sequence"
	IDStrategyUUID     = "uuid"
)

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:            getEnvAsInt("FEEDWATCH_PORT", 4000),
			Host:            getEnvOrDefault("FEEDWATCH_HOST", "0.0.0.0"),
			ShutdownTimeout: getEnvAsSeconds("FEEDWATCH_SHUTDOWN_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			Path: os.Getenv("FEEDWATCH_DB_PATH"),
		},
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
		},
		Features: FeatureConfig{
			RSS: RSSConfig{
				Enabled:      getEnvAsBool("RSS_ENABLED", true),
				PollInterval: getEnvAsSeconds("RSS_POLL_INTERVAL", 5),
				FetchTimeout: getEnvAsSeconds("RSS_FETCH_TIMEOUT", 30),
				UserAgent:    getEnvOrDefault("RSS_USER_AGENT", "feedwatch/1.0"),
				FetchProxy:   os.Getenv("RSS_FETCH_PROXY"),
				IDStrategy:   strings.ToLower(getEnvOrDefault("RSS_ID_STRATEGY", IDStrategyUUID)),
			},
		},
	}

	if _, ok := os.LookupEnv("FEEDWATCH_DB_PATH"); !ok {
		config.Database.Path = "./feedwatch.db"
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return NewConfigurationError(fmt.Sprintf("invalid server port: %d", c.Server.Port), nil)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return NewConfigurationError("shutdown timeout must be positive", nil)
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return NewConfigurationError(fmt.Sprintf("unknown log format %q", c.Log.Format), nil)
	}

	rss := c.Features.RSS
	if rss.Enabled {
		if rss.PollInterval <= 0 {
			return NewConfigurationError("poll interval must be positive", nil)
		}
		if rss.FetchTimeout <= 0 {
			return NewConfigurationError("fetch timeout must be positive", nil)
		}
		switch rss.IDStrategy {
		case IDStrategySequence, IDStrategyUUID:
		default:
			return NewConfigurationError(fmt.Sprintf("unknown id strategy %q", rss.IDStrategy), nil)
		}
	}

	return nil
}

// IsFeatureEnabled checks if a feature is enabled
func (c *Config) IsFeatureEnabled(featureName string) bool {
	switch strings.ToLower(featureName) {
	case "rss":
		return c.Features.RSS.Enabled
	default:
		return false
	}
}

// Addr returns the listen address of the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultSeconds)) * time.Second
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return defaultValue
}
