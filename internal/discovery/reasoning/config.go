// internal/discovery/reasoning/config.go
package reasoning

import (
	"time"

	"resource-discovery/internal/common/config"
)

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	StreamModel string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
}

// ConfigFrom maps the reasoning section of the service configuration.
func ConfigFrom(c config.ReasoningConfig) *Config {
	return &Config{
		BaseURL:     c.BaseURL,
		APIKey:      c.APIKey,
		Model:       c.Model,
		StreamModel: c.StreamModel,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		Timeout:     config.GetDuration(c.Timeout),
		MaxRetries:  c.MaxRetries,
	}
}
