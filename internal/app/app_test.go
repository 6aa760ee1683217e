package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pictochat/backend/internal/auth"
	"pictochat/backend/internal/config"
	"pictochat/backend/internal/model"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		AppPort:             0,
		LogLevel:            "DEBUG",
		DatabaseDriver:      "sqlite",
		DatabasePath:        filepath.Join(t.TempDir(), "test.db"),
		LLMProvider:         "openai",
		ImageProvider:       "fal",
		SystemPrompt:        config.DefaultSystemPrompt,
		ImageSize:           "square_hd",
		ImageSteps:          4,
		PlaceholderImageURL: "/placeholder.svg",
		RemoteTimeout:       time.Second,
		PersistTimeout:      time.Second,
		JWTSecret:           "test-secret",
		CORSAllowedOrigins:  []string{"http://localhost:3000"},
		RateLimitRequests:   100,
		RateLimitWindow:     time.Minute,
	}
}

func TestNewApp(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		app, err := NewApp(context.Background(), testConfig(t))
		require.NoError(t, err)
		defer func() { require.NoError(t, app.Close()) }()

		assert.NotNil(t, app.Server)
		assert.NotNil(t, app.Sessions)

		rr := httptest.NewRecorder()
		app.Server.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Success - Authenticated session over the wired stack", func(t *testing.T) {
		cfg := testConfig(t)
		app, err := NewApp(context.Background(), cfg)
		require.NoError(t, err)
		defer func() { require.NoError(t, app.Close()) }()

		token, err := auth.NewVerifier(cfg.JWTSecret).Issue(model.Identity{Subject: "user-1", Name: "Ada"}, time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		app.Server.Handler.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var snap map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
		assert.Equal(t, []any{}, snap["chats"])
		assert.Equal(t, 1, app.Sessions.Len())
	})

	t.Run("Success - Embedded bolt store", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.DatabaseDriver = "bolt"
		cfg.DatabasePath = filepath.Join(t.TempDir(), "chat.bolt")

		app, err := NewApp(context.Background(), cfg)
		require.NoError(t, err)
		assert.NoError(t, app.Close())
	})

	t.Run("Failure - Missing JWT secret", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.JWTSecret = ""

		_, err := NewApp(context.Background(), cfg)
		assert.Error(t, err)
	})

	t.Run("Failure - Unknown database driver", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.DatabaseDriver = "oracle"

		_, err := NewApp(context.Background(), cfg)
		assert.ErrorContains(t, err, "unknown database driver")
	})

	t.Run("Failure - Unknown completion provider", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.LLMProvider = "cohere"

		_, err := NewApp(context.Background(), cfg)
		assert.ErrorContains(t, err, "completion provider")
	})
}

func TestWaitFor(t *testing.T) {
	oldAttempts, oldDelay := waitAttempts, waitDelay
	waitAttempts, waitDelay = 3, time.Millisecond
	t.Cleanup(func() { waitAttempts, waitDelay = oldAttempts, oldDelay })

	t.Run("Success - Ready after retries", func(t *testing.T) {
		calls := 0
		err := waitFor(context.Background(), "db", func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("Failure - Never ready", func(t *testing.T) {
		calls := 0
		err := waitFor(context.Background(), "db", func(context.Context) error {
			calls++
			return errors.New("connection refused")
		})

		assert.ErrorContains(t, err, "db not ready after 3 attempts")
		assert.Equal(t, 3, calls)
	})

	t.Run("Failure - Context cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := waitFor(ctx, "db", func(context.Context) error { return errors.New("down") })

		assert.ErrorIs(t, err, context.Canceled)
	})
}
