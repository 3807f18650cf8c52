package scheduler

import (
	"time"

	"github.com/smallbiznis/horecaalert/internal/config"
)

// Config controls the in-process alert run schedule.
type Config struct {
	Enabled    bool
	Spec       string
	RunTimeout time.Duration
	// RunOnStart fires one run right after Start instead of waiting for the first tick.
	RunOnStart bool
}

func DefaultConfig() Config {
	return Config{
		Spec:       "@every 24h",
		RunTimeout: 10 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:    cfg.Scheduler.Enabled,
		Spec:       cfg.Scheduler.Spec,
		RunTimeout: cfg.Scheduler.RunTimeout,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.Spec == "" {
		c.Spec = defaults.Spec
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = defaults.RunTimeout
	}
	return c
}
