package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestOllamaProvider runs the client against an httptest server standing in
// for the Ollama API.
func TestOllamaProvider(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// ARRANGE
		var captured ollamaChatRequest
		var capturedMethod, capturedPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedMethod = r.Method
			capturedPath = r.URL.Path
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			w.Header().Set("Content-Type", "application/json")
			_, err := w.Write([]byte(`{"model":"llama3.2","message":{"role":"assistant","content":"Paris."},"done":true}`))
			assert.NoError(t, err)
		}))
		defer server.Close()

		provider := NewOllamaProvider(server.URL+"/", "")

		// ACT
		resp, err := provider.Complete(context.Background(), &CompletionRequest{
			System:    "be brief",
			Messages:  []Message{{Role: RoleUser, Content: "capital of France?"}},
			MaxTokens: 64,
		})

		// ASSERT
		require.NoError(t, err)
		assert.Equal(t, "Paris.", resp.Content)
		assert.Equal(t, "llama3.2", resp.Model)
		assert.Equal(t, http.MethodPost, capturedMethod)
		assert.Equal(t, "/api/chat", capturedPath)
		assert.False(t, captured.Stream)
		assert.Equal(t, DefaultOllamaModel, captured.Model)
		require.Len(t, captured.Messages, 2)
		assert.Equal(t, Message{Role: "system", Content: "be brief"}, captured.Messages[0])
		assert.Equal(t, Message{Role: RoleUser, Content: "capital of France?"}, captured.Messages[1])
		require.NotNil(t, captured.Options)
		assert.Equal(t, 64, captured.Options.NumPredict)
	})

	t.Run("Failure - Non-200 status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
		}))
		defer server.Close()

		_, err := NewOllamaProvider(server.URL, "missing").Complete(context.Background(), &CompletionRequest{
			Messages: []Message{{Role: RoleUser, Content: "hi"}},
		})

		assert.ErrorContains(t, err, "model not found")
	})

	t.Run("Failure - Empty answer", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"model":"llama3.2","message":{"role":"assistant","content":"  "},"done":true}`))
		}))
		defer server.Close()

		_, err := NewOllamaProvider(server.URL, "").Complete(context.Background(), &CompletionRequest{
			Messages: []Message{{Role: RoleUser, Content: "hi"}},
		})

		assert.ErrorIs(t, err, ErrEmptyCompletion)
	})
}
