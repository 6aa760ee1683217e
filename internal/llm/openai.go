package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const DefaultOpenAIModel = openai.GPT3Dot5Turbo

type openAIProvider struct {
	client       *openai.Client
	defaultModel string
}

// NewOpenAIProvider creates a completer backed by the OpenAI chat completions API.
// baseURL may point at any OpenAI-compatible endpoint; empty means the public API.
func NewOpenAIProvider(apiKey, baseURL, defaultModel string) Completer {
	if apiKey == "" {
		return &unconfigured{name: "openai"}
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if defaultModel == "" {
		defaultModel = DefaultOpenAIModel
	}
	return &openAIProvider{
		client:       openai.NewClientWithConfig(cfg),
		defaultModel: defaultModel,
	}
}

func (p *openAIProvider) Name() string { return "openai" }

func (p *openAIProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	modelName := req.Model
	if modelName == "" {
		modelName = p.defaultModel
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     modelName,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, ErrEmptyCompletion
	}

	return &CompletionResponse{
		Model:   resp.Model,
		Content: resp.Choices[0].Message.Content,
	}, nil
}

// unconfigured fails every call; it lets the service start without credentials
// so that the UI can still show the apology path.
type unconfigured struct {
	name string
}

func (u *unconfigured) Name() string { return u.name }

func (u *unconfigured) Complete(context.Context, *CompletionRequest) (*CompletionResponse, error) {
	return nil, fmt.Errorf("%s: %w", u.name, ErrNotConfigured)
}
