// Package llm abstracts text generation providers for the agent layer.
package llm

import "context"

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Options tunes a single generation call.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Provider generates text from a conversation.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Model returns the active model identifier.
	Model() string

	// ValidateCredentials verifies the provider is reachable and the
	// configured credentials (if any) are accepted.
	ValidateCredentials(ctx context.Context) error

	// ListModels returns the models the provider can serve.
	ListModels(ctx context.Context) ([]string, error)

	// Generate produces a completion for the conversation.
	Generate(ctx context.Context, messages []Message, opts Options) (string, error)

	// Stream produces a completion incrementally, invoking fn per token
	// batch. The full text is returned when the stream completes.
	Stream(ctx context.Context, messages []Message, opts Options, fn func(delta string)) (string, error)
}
