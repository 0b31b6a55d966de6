// Package llm defines the language-model collaborator contract: stateful
// conversation sessions plus one-shot stateless generation.
package llm

import "context"

// Chat roles in provider-agnostic form
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one turn of conversation fed to the model
type Message struct {
	Role    string
	Content string
}

// Options configures a model session
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	TopK        int
	TopP        float64
}

// Session is a stateful conversation context. Sessions are not safe for
// concurrent use; the inference session manager serializes all access.
type Session interface {
	// AppendTurn adds a turn to the conversation without generating
	AppendTurn(role, content string)

	// Generate produces a completion for all appended turns and records the
	// assistant reply as a turn itself.
	Generate(ctx context.Context) (string, error)

	// Close releases the session's resources
	Close() error
}

// Provider is a language-model backend
type Provider interface {
	// NewSession creates a conversation session. May be slow (model load).
	NewSession(opts Options) (Session, error)

	// GenerateOnce runs a single stateless prompt, bypassing any session
	GenerateOnce(ctx context.Context, prompt string) (string, error)
}
