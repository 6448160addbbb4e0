// Package provider defines the external AI collaborator boundary. The
// engine never calls these itself; it produces the context bundle that
// callers splice into prompts sent through them.
package provider

import (
	"context"
	"time"
)

// Role identifies the author of a prompt message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in an ordered prompt.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompleteOptions tune a completion request.
type CompleteOptions struct {
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// CompletionProvider generates a reply for an ordered message list.
type CompletionProvider interface {
	Complete(ctx context.Context, messages []Message, opts CompleteOptions) (string, error)
}

// TranslationProvider translates text between languages identified by
// BCP 47 tags.
type TranslationProvider interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}
