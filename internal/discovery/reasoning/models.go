// internal/discovery/reasoning/models.go
package reasoning

import "resource-discovery/internal/models"

type Request struct {
	SystemPrompt string
	History      []models.ConversationTurn
	Query        string
	// Stream selects the streaming model and delivers text through the chunk callback.
	Stream bool
}

type Response struct {
	Text     string
	Model    string
	Streamed bool
}

// ChunkFunc receives streamed text in arrival order.
type ChunkFunc func(chunk string) error
