package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultFalURL = "https://fal.run/fal-ai/flux/schnell"

type falGenerator struct {
	client *http.Client
	url    string
	key    string
}

// NewFalGenerator creates a generator for the fal.ai synchronous run endpoint.
func NewFalGenerator(url, key string, timeout time.Duration) Generator {
	if url == "" {
		url = DefaultFalURL
	}
	return &falGenerator{
		client: &http.Client{Timeout: timeout},
		url:    url,
		key:    key,
	}
}

type falRequest struct {
	Prompt            string `json:"prompt"`
	ImageSize         string `json:"image_size"`
	NumInferenceSteps int    `json:"num_inference_steps"`
	NumImages         int    `json:"num_images"`
}

type falResponse struct {
	Images []struct {
		URL         string `json:"url"`
		Width       int    `json:"width"`
		Height      int    `json:"height"`
		ContentType string `json:"content_type"`
	} `json:"images"`
}

func (g *falGenerator) Name() string { return "fal" }

func (g *falGenerator) Generate(ctx context.Context, req Request) ([]string, error) {
	if g.key == "" {
		return nil, fmt.Errorf("fal: %w", ErrNotConfigured)
	}
	req = withDefaults(req)

	body, err := json.Marshal(falRequest{
		Prompt:            req.Prompt,
		ImageSize:         req.Size,
		NumInferenceSteps: req.Steps,
		NumImages:         req.Count,
	})
	if err != nil {
		return nil, fmt.Errorf("could not marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Key "+g.key)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fal returned non-200 status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var falResp falResponse
	if err := json.NewDecoder(resp.Body).Decode(&falResp); err != nil {
		return nil, fmt.Errorf("could not decode response: %w", err)
	}

	urls := make([]string, 0, len(falResp.Images))
	for _, img := range falResp.Images {
		if img.URL != "" {
			urls = append(urls, img.URL)
		}
	}
	if len(urls) == 0 {
		return nil, ErrNoImage
	}
	return urls, nil
}
