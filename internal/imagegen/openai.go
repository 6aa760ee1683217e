package imagegen

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

type openAIGenerator struct {
	client *openai.Client
	key    string
}

// NewOpenAIGenerator creates a generator backed by the OpenAI images API (DALL·E 3).
func NewOpenAIGenerator(apiKey, baseURL string) Generator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &openAIGenerator{client: openai.NewClientWithConfig(cfg), key: apiKey}
}

func (g *openAIGenerator) Name() string { return "openai" }

// Generate ignores Steps; DALL·E 3 only accepts one image per call, so Count
// is capped at 1.
func (g *openAIGenerator) Generate(ctx context.Context, req Request) ([]string, error) {
	if g.key == "" {
		return nil, fmt.Errorf("openai images: %w", ErrNotConfigured)
	}

	resp, err := g.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         req.Prompt,
		Model:          openai.CreateImageModelDallE3,
		N:              1,
		Size:           openAISize(req.Size),
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return nil, fmt.Errorf("openai image request failed: %w", err)
	}

	urls := make([]string, 0, len(resp.Data))
	for _, d := range resp.Data {
		if d.URL != "" {
			urls = append(urls, d.URL)
		}
	}
	if len(urls) == 0 {
		return nil, ErrNoImage
	}
	return urls, nil
}

// openAISize maps fal size names onto the sizes DALL·E 3 accepts.
func openAISize(size string) string {
	switch size {
	case "landscape_4_3", "landscape_16_9":
		return openai.CreateImageSize1792x1024
	case "portrait_4_3", "portrait_16_9":
		return openai.CreateImageSize1024x1792
	default:
		return openai.CreateImageSize1024x1024
	}
}
