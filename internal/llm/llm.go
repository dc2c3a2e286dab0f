// Package llm provides text completion via an external chat service.
package llm

import "context"

// Message is one chat message in the system/history/user shape.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Completer produces a text completion from an ordered message list.
type Completer interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}
