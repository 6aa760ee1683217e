package llm

import (
	"context"
	"errors"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrNotConfigured is returned by providers created without credentials.
	ErrNotConfigured = errors.New("llm: provider is not configured")
	// ErrEmptyCompletion is returned when the provider answered without any text.
	ErrEmptyCompletion = errors.New("llm: empty completion")
)

// Message is one entry of a completion history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a provider-neutral chat completion call.
type CompletionRequest struct {
	Model     string
	System    string
	Messages  []Message
	MaxTokens int
}

// CompletionResponse carries the assistant text returned by a provider.
type CompletionResponse struct {
	Model   string
	Content string
}

// Completer defines the interface for interacting with a completion service.
type Completer interface {
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
	Name() string
}
