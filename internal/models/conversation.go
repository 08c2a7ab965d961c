// internal/models/conversation.go
package models

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one prior exchange supplied by the client.
type ConversationTurn struct {
	Role     Role   `json:"role"`
	Content  string `json:"content"`
	Sequence int    `json:"-"`
}

// Valid reports whether the turn has a known role and non-empty content.
func (t ConversationTurn) Valid() bool {
	return (t.Role == RoleUser || t.Role == RoleAssistant) && t.Content != ""
}
