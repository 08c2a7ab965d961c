// internal/discovery/websearch/config.go
package websearch

import (
	"time"

	"resource-discovery/internal/common/config"
)

type Config struct {
	BaseURL           string
	APIKey            string
	Model             string
	MaxTokens         int
	MaxResults        int
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerSecond float64
	Burst             int
}

// ConfigFrom maps the web_search section of the service configuration.
func ConfigFrom(c config.WebSearchConfig) *Config {
	return &Config{
		BaseURL:           c.BaseURL,
		APIKey:            c.APIKey,
		Model:             c.Model,
		MaxTokens:         c.MaxTokens,
		MaxResults:        10,
		Timeout:           config.GetDuration(c.Timeout),
		MaxRetries:        c.MaxRetries,
		RequestsPerSecond: c.RequestsPerSecond,
		Burst:             c.Burst,
	}
}
