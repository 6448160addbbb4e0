package provider

import (
	"context"
	"fmt"
	"sync"
)

// Mock is a canned provider for tests and offline CLI runs. It records
// every call and replays configured responses in order, falling back to
// an echo once they run out.
type Mock struct {
	mu        sync.Mutex
	responses []string
	calls     [][]Message
	err       error
}

var (
	_ CompletionProvider  = (*Mock)(nil)
	_ TranslationProvider = (*Mock)(nil)
)

// NewMock creates a mock replaying the given responses in order.
func NewMock(responses ...string) *Mock {
	return &Mock{responses: responses}
}

// Fail makes every subsequent call return err.
func (m *Mock) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Complete replays the next canned response, or echoes the last user
// message when none remain.
func (m *Mock) Complete(ctx context.Context, messages []Message, _ CompleteOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, messages)
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) > 0 {
		resp := m.responses[0]
		m.responses = m.responses[1:]
		return resp, nil
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return fmt.Sprintf("I hear you: %s", messages[i].Content), nil
		}
	}
	return "I'm listening.", nil
}

// Translate returns the input tagged with the target language.
func (m *Mock) Translate(ctx context.Context, text, _, targetLang string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return "", m.err
	}
	return fmt.Sprintf("[%s] %s", targetLang, text), nil
}

// Calls returns the recorded completion calls.
func (m *Mock) Calls() [][]Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([][]Message, len(m.calls))
	copy(out, m.calls)
	return out
}
