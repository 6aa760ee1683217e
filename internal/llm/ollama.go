package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const DefaultOllamaModel = "llama3.2"

// ollamaProvider talks to a local Ollama server over its REST API. It has no
// credentials, so it is always configured.
type ollamaProvider struct {
	client       *http.Client
	url          string
	defaultModel string
}

// NewOllamaProvider creates a completer backed by the Ollama /api/chat endpoint.
func NewOllamaProvider(url, defaultModel string) Completer {
	if defaultModel == "" {
		defaultModel = DefaultOllamaModel
	}
	return &ollamaProvider{
		client:       &http.Client{},
		url:          strings.TrimRight(url, "/"),
		defaultModel: defaultModel,
	}
}

func (p *ollamaProvider) Name() string { return "ollama" }

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	NumPredict int `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Model   string  `json:"model"`
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

func (p *ollamaProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	modelName := req.Model
	if modelName == "" {
		modelName = p.defaultModel
	}

	chatReq := ollamaChatRequest{
		Model:    modelName,
		Messages: make([]Message, 0, len(req.Messages)+1),
	}
	if req.System != "" {
		chatReq.Messages = append(chatReq.Messages, Message{Role: "system", Content: req.System})
	}
	chatReq.Messages = append(chatReq.Messages, req.Messages...)
	if req.MaxTokens > 0 {
		chatReq.Options = &ollamaOptions{NumPredict: req.MaxTokens}
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("could not marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama returned non-200 status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("could not decode ollama response: %w", err)
	}
	if strings.TrimSpace(chatResp.Message.Content) == "" {
		return nil, ErrEmptyCompletion
	}

	return &CompletionResponse{
		Model:   chatResp.Model,
		Content: chatResp.Message.Content,
	}, nil
}
