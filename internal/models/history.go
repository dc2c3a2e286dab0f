package models

import (
	"encoding/json"
	"fmt"
)

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one conversation turn, supplied per-query by the caller.
// The core never persists turns.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// History is an ordered list of conversation turns. On the wire it accepts
// two shapes: a list of {role, content} objects, or a list of
// [user, assistant] pairs (each pair expands to up to two turns).
type History []Turn

// UnmarshalJSON decodes either history wire shape.
func (h *History) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("history must be a list: %w", err)
	}
	turns := make([]Turn, 0, len(raw))
	for i, item := range raw {
		var t Turn
		if err := json.Unmarshal(item, &t); err == nil && t.Role != "" {
			turns = append(turns, Turn{Role: normalizeRole(t.Role), Content: t.Content})
			continue
		}
		var pair []string
		if err := json.Unmarshal(item, &pair); err != nil {
			return fmt.Errorf("history entry %d: expected {role, content} or [user, assistant]", i)
		}
		if len(pair) > 0 && pair[0] != "" {
			turns = append(turns, Turn{Role: RoleUser, Content: pair[0]})
		}
		if len(pair) > 1 && pair[1] != "" {
			turns = append(turns, Turn{Role: RoleAssistant, Content: pair[1]})
		}
	}
	*h = turns
	return nil
}

// normalizeRole maps any non-user role (assistant, system) to assistant.
func normalizeRole(role string) string {
	if role == RoleUser {
		return RoleUser
	}
	return RoleAssistant
}
