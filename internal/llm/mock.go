package llm

import (
	"context"
	"sync"
)

// MockCompleter is a scripted completer for tests. Replies are returned in
// order, and every received message list is recorded.
type MockCompleter struct {
	mu      sync.Mutex
	replies []string
	err     error
	Calls   [][]Message
}

// NewMockCompleter returns a completer that answers with replies in order,
// repeating the last one when exhausted.
func NewMockCompleter(replies ...string) *MockCompleter {
	return &MockCompleter{replies: replies}
}

// Fail makes every Chat call return err.
func (m *MockCompleter) Fail(err error) *MockCompleter {
	m.err = err
	return m
}

// Chat records messages and returns the next scripted reply.
func (m *MockCompleter) Chat(ctx context.Context, messages []Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recorded := make([]Message, len(messages))
	copy(recorded, messages)
	m.Calls = append(m.Calls, recorded)
	if m.err != nil {
		return "", m.err
	}
	if len(m.replies) == 0 {
		return "", nil
	}
	reply := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	return reply, nil
}
