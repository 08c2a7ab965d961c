// Package conversation bounds the prior-turn context forwarded to the reasoning client.
package conversation

import "resource-discovery/internal/models"

// DefaultMaxTurns is the number of prior turns kept when no cap is configured.
const DefaultMaxTurns = 6

// Window returns the most recent max valid turns in chronological order,
// renumbered from 1. Older turns are dropped, never summarized.
func Window(turns []models.ConversationTurn, max int) []models.ConversationTurn {
	if max <= 0 {
		return []models.ConversationTurn{}
	}

	valid := make([]models.ConversationTurn, 0, len(turns))
	for _, t := range turns {
		if t.Valid() {
			valid = append(valid, t)
		}
	}

	if len(valid) > max {
		valid = valid[len(valid)-max:]
	}

	out := make([]models.ConversationTurn, len(valid))
	for i, t := range valid {
		t.Sequence = i + 1
		out[i] = t
	}
	return out
}

// SplitMessages treats the last user message as the query and everything
// before it as prior context.
func SplitMessages(messages []models.ConversationTurn) (string, []models.ConversationTurn) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.RoleUser && messages[i].Content != "" {
			return messages[i].Content, messages[:i]
		}
	}
	return "", messages
}
