package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultGeminiModel = "gemini-1.5-flash-latest"

type geminiProvider struct {
	client       *genai.Client
	defaultModel string
}

// NewGeminiProvider creates a completer backed by the Gemini API. The returned
// close func releases the underlying client.
func NewGeminiProvider(ctx context.Context, apiKey, defaultModel string) (Completer, func() error, error) {
	if apiKey == "" {
		return &unconfigured{name: "gemini"}, func() error { return nil }, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if defaultModel == "" {
		defaultModel = DefaultGeminiModel
	}
	return &geminiProvider{client: client, defaultModel: defaultModel}, client.Close, nil
}

func (p *geminiProvider) Name() string { return "gemini" }

func (p *geminiProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("gemini: completion history is empty")
	}
	modelName := req.Model
	if modelName == "" {
		modelName = p.defaultModel
	}

	model := p.client.GenerativeModel(modelName)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if req.MaxTokens > 0 {
		maxTokens := int32(req.MaxTokens)
		model.GenerationConfig.MaxOutputTokens = &maxTokens
	}

	history, last := geminiHistory(req.Messages)
	session := model.StartChat()
	session.History = history

	resp, err := session.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return nil, fmt.Errorf("gemini SendMessage failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrEmptyCompletion
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	if text.Len() == 0 {
		return nil, ErrEmptyCompletion
	}
	return &CompletionResponse{Model: modelName, Content: text.String()}, nil
}

// geminiHistory splits messages into the chat history and the final prompt.
// Gemini names the assistant role "model".
func geminiHistory(messages []Message) ([]*genai.Content, string) {
	last := messages[len(messages)-1].Content
	history := make([]*genai.Content, 0, len(messages)-1)
	for _, m := range messages[:len(messages)-1] {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return history, last
}
