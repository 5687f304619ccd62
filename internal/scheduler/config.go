package scheduler

import (
	"time"

	"github.com/orbitalworks/foundry/internal/config"
)

// Config controls tick cadence and per-tick facility fan-out.
type Config struct {
	RunInterval   time.Duration
	DispatchWidth int
}

func DefaultConfig() Config {
	return Config{
		RunInterval:   time.Second,
		DispatchWidth: 16,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.DispatchWidth <= 0 {
		c.DispatchWidth = defaults.DispatchWidth
	}
	return c
}

func ProvideConfig(appCfg config.Config) Config {
	return Config{
		RunInterval:   appCfg.TickInterval,
		DispatchWidth: appCfg.DispatchWidth,
	}
}
