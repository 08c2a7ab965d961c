// internal/discovery/websearch/client.go
package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	httpclient "resource-discovery/internal/common/http"
	"resource-discovery/internal/common/logger"
	"resource-discovery/internal/discovery/persona"
	"resource-discovery/internal/models"

	"github.com/google/uuid"
)

const (
	Name   = "web_search"
	Source = "perplexity"
)

var (
	ErrWebSearchTimeout = errors.New("WEB_SEARCH_TIMEOUT")
	ErrWebSearchFailed  = errors.New("WEB_SEARCH_FAILED")
)

// Searcher is the secondary, online search collaborator.
type Searcher interface {
	Search(ctx context.Context, req Request) ([]models.Resource, error)
}

type Client struct {
	config *Config
	client *httpclient.Client
	logger logger.Logger
}

func NewClient(config *Config, log logger.Logger, opts ...httpclient.Option) *Client {
	base := []httpclient.Option{
		httpclient.WithMaxRetries(config.MaxRetries),
		httpclient.WithRateLimit(config.RequestsPerSecond, config.Burst),
	}
	return &Client{
		config: config,
		client: httpclient.NewClient(config.Timeout, append(base, opts...)...),
		logger: log.With(map[string]interface{}{
			"component": Name,
		}),
	}
}

// Search asks the online model for organizations matching the request.
// Every returned resource is tagged as web provenance and unverified.
func (c *Client) Search(ctx context.Context, req Request) ([]models.Resource, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	system, user := persona.WebSearchInstruction(req.Persona, req.Query, req.Location, req.County)
	body := chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens: c.config.MaxTokens,
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/chat/completions"
	resp, err := c.client.PostJSON(ctx, url, map[string]string{
		"Authorization": "Bearer " + c.config.APIKey,
	}, body)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", ErrWebSearchFailed, resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrWebSearchFailed, err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return nil, fmt.Errorf("%w: empty answer", ErrWebSearchFailed)
	}

	resources := c.processResults(req.Persona, out.Choices[0].Message.Content)
	c.logger.Info("web search completed", map[string]interface{}{
		"persona":   req.Persona,
		"resources": len(resources),
	})
	return resources, nil
}

// processResults parses a JSON array of organizations out of the answer.
// Unstructured answers become a single summary resource.
func (c *Client) processResults(p persona.Persona, content string) []models.Resource {
	entries := parseEntries(content)

	resources := make([]models.Resource, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.Name) == "" {
			continue
		}
		if c.config.MaxResults > 0 && len(resources) >= c.config.MaxResults {
			break
		}
		kind := e.Type
		if kind == "" {
			kind = "web_search"
		}
		resources = append(resources, webResource(models.Resource{
			Name:         strings.TrimSpace(e.Name),
			Organization: e.Organization,
			Type:         kind,
			Description:  e.Description,
			Phone:        e.Phone,
			Website:      e.Website,
			City:         e.City,
			County:       e.County,
		}))
	}

	if len(resources) > 0 {
		return resources
	}
	return []models.Resource{webResource(models.Resource{
		Name:        fallbackTitle(p),
		Type:        "web_search",
		Description: strings.TrimSpace(content),
	})}
}

func parseEntries(content string) []webEntry {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil
	}
	var entries []webEntry
	if err := json.Unmarshal([]byte(content[start:end+1]), &entries); err != nil {
		return nil
	}
	return entries
}

func webResource(r models.Resource) models.Resource {
	r.ID = uuid.NewString()
	r.Provenance = models.ProvenanceWeb
	r.Verified = false
	r.Source = Source
	return r
}

func fallbackTitle(p persona.Persona) string {
	switch p {
	case persona.Crisis, persona.CrisisEmergency:
		return "Latest Crisis Resources"
	case persona.Victim:
		return "Latest Victim Support Resources"
	default:
		return "Latest Web Resources"
	}
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrWebSearchTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrWebSearchTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrWebSearchFailed, err)
}
