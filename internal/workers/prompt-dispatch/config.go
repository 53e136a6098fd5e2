package promptdispatch

import (
	"time"

	"sales-assistant/internal/common/config"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
}

// LoadConfig reads the worker section keyed by WorkerName.
func LoadConfig(cfg *config.Config) *Config {
	wc := config.GetWorkerConfig(cfg, WorkerName)
	timeout := config.GetDuration(wc.Timeout)
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Config{
		Enabled:       wc.Enabled,
		MaxJobsActive: wc.MaxJobsActive,
		Timeout:       timeout,
	}
}
