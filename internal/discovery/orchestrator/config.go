// internal/discovery/orchestrator/config.go
package orchestrator

import (
	"time"

	"resource-discovery/internal/common/config"
	"resource-discovery/internal/discovery/conversation"
)

type Config struct {
	MaxContextTurns   int
	MinLocalResources int
	RequestTimeout    time.Duration
	LookupTimeout     time.Duration
	// KeywordTerms and KeywordLimit bound the degraded direct keyword query.
	KeywordTerms int
	KeywordLimit int
}

func DefaultConfig() *Config {
	return &Config{
		MaxContextTurns:   conversation.DefaultMaxTurns,
		MinLocalResources: 2,
		RequestTimeout:    45 * time.Second,
		LookupTimeout:     5 * time.Second,
		KeywordTerms:      3,
		KeywordLimit:      8,
	}
}

// ConfigFrom maps the orchestrator section of the service configuration.
func ConfigFrom(c config.OrchestratorConfig) *Config {
	cfg := DefaultConfig()
	cfg.MaxContextTurns = c.MaxContextTurns
	if c.MinLocalResources > 0 {
		cfg.MinLocalResources = c.MinLocalResources
	}
	if c.RequestTimeout > 0 {
		cfg.RequestTimeout = config.GetDuration(c.RequestTimeout)
	}
	if c.LookupTimeout > 0 {
		cfg.LookupTimeout = config.GetDuration(c.LookupTimeout)
	}
	return cfg
}
