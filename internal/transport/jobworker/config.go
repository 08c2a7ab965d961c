// internal/transport/jobworker/config.go
package jobworker

import (
	"time"

	"resource-discovery/internal/common/config"
)

type Config struct {
	JobType       string
	MaxJobsActive int
	Timeout       time.Duration
}

func ConfigFrom(c config.CamundaConfig) *Config {
	cfg := &Config{
		JobType:       c.JobType,
		MaxJobsActive: c.MaxJobsActive,
		Timeout:       time.Duration(c.Timeout) * time.Millisecond,
	}
	if cfg.JobType == "" {
		cfg.JobType = TaskType
	}
	if cfg.MaxJobsActive <= 0 {
		cfg.MaxJobsActive = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return cfg
}
