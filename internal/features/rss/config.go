package rss

import (
	"fmt"
	"time"

	"feedwatch/internal/core"
	"feedwatch/internal/features/rss/models"
)

// Config represents RSS feature configuration
type Config struct {
	Enabled      bool
	PollInterval time.Duration
	FetchTimeout time.Duration
	UserAgent    string
	FetchProxy   string
	IDStrategy   string
}

// NewConfig creates RSS config from core config
func NewConfig(coreConfig *core.Config) *Config {
	rss := coreConfig.Features.RSS
	return &Config{
		Enabled:      rss.Enabled,
		PollInterval: rss.PollInterval,
		FetchTimeout: rss.FetchTimeout,
		UserAgent:    rss.UserAgent,
		FetchProxy:   rss.FetchProxy,
		IDStrategy:   rss.IDStrategy,
	}
}

// Validate validates the RSS configuration
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.PollInterval)
	}

	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %v", c.FetchTimeout)
	}

	switch c.IDStrategy {
	case core.IDStrategySequence, core.IDStrategyUUID:
	default:
		return fmt.Errorf("unknown id strategy %q", c.IDStrategy)
	}

	return nil
}

func (c *Config) schedulerConfig() *models.SchedulerConfig {
	config := models.DefaultSchedulerConfig()
	config.PollInterval = c.PollInterval
	return config
}

func (c *Config) fetcherConfig() *models.FetcherConfig {
	return &models.FetcherConfig{
		UserAgent: c.UserAgent,
		Timeout:   c.FetchTimeout,
	}
}
