package imagegen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceholder(t *testing.T) {
	t.Run("Prompt is percent-encoded with spaces as %20", func(t *testing.T) {
		got := Placeholder("", "a cat & a dog?")
		assert.Equal(t, "/placeholder.svg?height=512&width=512&text=a%20cat%20%26%20a%20dog%3F", got)
	})

	t.Run("Custom base is used", func(t *testing.T) {
		got := Placeholder("https://cdn.example/ph.svg", "x")
		assert.Equal(t, "https://cdn.example/ph.svg?height=512&width=512&text=x", got)
	})
}

// TestFalGenerator verifies the request shape sent to fal.ai and the handling of
// its responses, using an httptest server as the fal endpoint.
func TestFalGenerator(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		var captured falRequest
		var capturedAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedAuth = r.Header.Get("Authorization")
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"images":[{"url":"https://fal.media/img.png","width":1024,"height":1024}]}`))
		}))
		defer server.Close()

		gen := NewFalGenerator(server.URL, "secret", 5*time.Second)

		// ACT
		urls, err := gen.Generate(ctx, Request{Prompt: "draw a fox"})

		// ASSERT
		require.NoError(t, err)
		assert.Equal(t, []string{"https://fal.media/img.png"}, urls)
		assert.Equal(t, "Key secret", capturedAuth)
		assert.Equal(t, falRequest{Prompt: "draw a fox", ImageSize: "square_hd", NumInferenceSteps: 4, NumImages: 1}, captured)
	})

	t.Run("Failure - Empty image list", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"images":[]}`))
		}))
		defer server.Close()

		_, err := NewFalGenerator(server.URL, "secret", time.Second).Generate(ctx, Request{Prompt: "x"})
		assert.ErrorIs(t, err, ErrNoImage)
	})

	t.Run("Failure - Non-200 status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"bad key"}`))
		}))
		defer server.Close()

		_, err := NewFalGenerator(server.URL, "secret", time.Second).Generate(ctx, Request{Prompt: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("Failure - Missing key", func(t *testing.T) {
		_, err := NewFalGenerator("", "", time.Second).Generate(ctx, Request{Prompt: "x"})
		assert.ErrorIs(t, err, ErrNotConfigured)
	})
}

func TestOpenAIGenerator(t *testing.T) {
	var capturedPath string
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created":1,"data":[{"url":"https://oai.example/img.png"}]}`))
	}))
	defer server.Close()

	gen := NewOpenAIGenerator("k", server.URL+"/v1")
	urls, err := gen.Generate(context.Background(), Request{Prompt: "a lighthouse", Size: "square_hd"})

	require.NoError(t, err)
	assert.Equal(t, []string{"https://oai.example/img.png"}, urls)
	assert.Equal(t, "/v1/images/generations", capturedPath)
	assert.Equal(t, "dall-e-3", captured["model"])
	assert.Equal(t, "1024x1024", captured["size"])
}

func TestNewGenerator(t *testing.T) {
	g, err := NewGenerator(ProviderOptions{})
	require.NoError(t, err)
	assert.Equal(t, "fal", g.Name())

	g, err = NewGenerator(ProviderOptions{Provider: "OpenAI"})
	require.NoError(t, err)
	assert.Equal(t, "openai", g.Name())

	_, err = NewGenerator(ProviderOptions{Provider: "midjourney"})
	assert.Error(t, err)
}
