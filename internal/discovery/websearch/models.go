// internal/discovery/websearch/models.go
package websearch

import "resource-discovery/internal/discovery/persona"

type Request struct {
	Persona  persona.Persona
	Query    string
	Location string
	County   string
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations,omitempty"`
}

// webEntry is one organization as described by the search model.
type webEntry struct {
	Name         string `json:"name"`
	Organization string `json:"organization"`
	Type         string `json:"type"`
	Description  string `json:"description"`
	Phone        string `json:"phone"`
	Website      string `json:"website"`
	City         string `json:"city"`
	County       string `json:"county"`
}
