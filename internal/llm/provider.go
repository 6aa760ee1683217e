package llm

import (
	"context"
	"fmt"
	"strings"
)

// ProviderOptions selects and configures one completion provider.
type ProviderOptions struct {
	Provider       string
	OpenAIKey      string
	OpenAIBaseURL  string
	OpenAIModel    string
	AnthropicKey   string
	AnthropicURL   string
	AnthropicModel string
	GeminiKey      string
	GeminiModel    string
	OllamaURL      string
	OllamaModel    string
}

// NewCompleter builds the completer named by opts.Provider. The close func must
// be called on shutdown.
func NewCompleter(ctx context.Context, opts ProviderOptions) (Completer, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(opts.Provider) {
	case "", "openai":
		return NewOpenAIProvider(opts.OpenAIKey, opts.OpenAIBaseURL, opts.OpenAIModel), noop, nil
	case "anthropic":
		return NewAnthropicProvider(opts.AnthropicKey, opts.AnthropicURL, opts.AnthropicModel), noop, nil
	case "gemini":
		return NewGeminiProvider(ctx, opts.GeminiKey, opts.GeminiModel)
	case "ollama":
		return NewOllamaProvider(opts.OllamaURL, opts.OllamaModel), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
}
