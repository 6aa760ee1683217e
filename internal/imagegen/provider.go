package imagegen

import (
	"fmt"
	"strings"
	"time"
)

// ProviderOptions selects and configures one image generator.
type ProviderOptions struct {
	Provider      string
	FalURL        string
	FalKey        string
	OpenAIKey     string
	OpenAIBaseURL string
	Timeout       time.Duration
}

// NewGenerator builds the generator named by opts.Provider.
func NewGenerator(opts ProviderOptions) (Generator, error) {
	switch strings.ToLower(opts.Provider) {
	case "", "fal":
		return NewFalGenerator(opts.FalURL, opts.FalKey, opts.Timeout), nil
	case "openai":
		return NewOpenAIGenerator(opts.OpenAIKey, opts.OpenAIBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown image provider %q", opts.Provider)
	}
}
