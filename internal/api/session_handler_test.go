package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pictochat/backend/internal/api"
	app_errors "pictochat/backend/internal/errors"
	"pictochat/backend/internal/intent"
	"pictochat/backend/internal/interfaces/mocks"
	"pictochat/backend/internal/model"
	"pictochat/backend/internal/session"
	sessionmocks "pictochat/backend/internal/session/mocks"
)

type sessionFixture struct {
	handler *api.SessionHandler
	manager *mocks.MockSessionManager
	backend *sessionmocks.MockBackend
	mirror  *session.Mirror
	session *session.Session
}

func setupSessionHandler(t *testing.T) *sessionFixture {
	backend := sessionmocks.NewMockBackend(t)
	mirror := session.NewMirror(backend, nil, time.Second)
	t.Cleanup(mirror.Wait)
	manager := mocks.NewMockSessionManager(t)
	return &sessionFixture{
		handler: api.NewSessionHandler(manager, []string{"http://localhost:3000"}),
		manager: manager,
		backend: backend,
		mirror:  mirror,
		session: session.New(ada, backend, mirror),
	}
}

// expectSession makes the manager hand out the fixture's session for tab.
func (f *sessionFixture) expectSession(tab string) {
	f.manager.On("Get", mock.Anything, ada, tab).Return(f.session, nil)
}

func decodeSnapshot(t *testing.T, rr *httptest.ResponseRecorder) session.Snapshot {
	t.Helper()
	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	return snap
}

func TestSessionHandler_GetSession(t *testing.T) {
	t.Run("Success - Tab from header", func(t *testing.T) {
		f := setupSessionHandler(t)
		f.expectSession("tab-7")

		req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/session", nil))
		req.Header.Set(api.TabHeader, "tab-7")
		rr := httptest.NewRecorder()
		f.handler.GetSession(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		snap := decodeSnapshot(t, rr)
		assert.Empty(t, snap.ActiveChatID)
		assert.Empty(t, snap.Messages)
	})

	t.Run("Success - Default tab", func(t *testing.T) {
		f := setupSessionHandler(t)
		f.expectSession(session.DefaultTab)

		rr := httptest.NewRecorder()
		f.handler.GetSession(rr, authed(httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)))

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Failure - Chats could not be loaded", func(t *testing.T) {
		f := setupSessionHandler(t)
		f.manager.On("Get", mock.Anything, ada, session.DefaultTab).Return(nil, app_errors.ErrUnavailable).Once()

		rr := httptest.NewRecorder()
		f.handler.GetSession(rr, authed(httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)))

		assert.Equal(t, http.StatusBadGateway, rr.Code)
	})

	t.Run("Failure - Anonymous", func(t *testing.T) {
		f := setupSessionHandler(t)

		rr := httptest.NewRecorder()
		f.handler.GetSession(rr, httptest.NewRequest(http.MethodGet, "/api/v1/session", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestSessionHandler_Submit(t *testing.T) {
	t.Run("Success - First message creates the chat", func(t *testing.T) {
		// ARRANGE
		f := setupSessionHandler(t)
		f.expectSession(session.DefaultTab)
		chat := &model.Chat{ID: "chat-1", Title: "What is the capital of France?", UserID: "user-1", Messages: []model.Message{}}
		reply := model.NewMessage(model.RoleAssistant, "Paris.")
		f.backend.On("CreateChat", mock.Anything, "user-1", "What is the capital of France?").Return(chat, nil).Once()
		f.backend.On("Reply", mock.Anything, intent.Text, []model.Message(nil), "What is the capital of France?").Return(reply, nil).Once()
		f.backend.On("SaveTurn", mock.Anything, "chat-1", mock.Anything, reply).Return(nil).Once()

		// ACT
		body := `{"content":"  What is the capital of France?  "}`
		rr := httptest.NewRecorder()
		f.handler.Submit(rr, authed(httptest.NewRequest(http.MethodPost, "/api/v1/session/messages", strings.NewReader(body))))
		f.mirror.Wait()

		// ASSERT
		assert.Equal(t, http.StatusOK, rr.Code)
		var resp api.SubmitResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, session.OutcomeCompleted, resp.Outcome)
		assert.Equal(t, "chat-1", resp.State.ActiveChatID)
		require.Len(t, resp.State.Messages, 2)
		assert.Equal(t, "What is the capital of France?", resp.State.Messages[0].Content)
		assert.Equal(t, "Paris.", resp.State.Messages[1].Content)
		assert.False(t, resp.State.IsLoading)
	})

	t.Run("Success - Blank input is ignored", func(t *testing.T) {
		f := setupSessionHandler(t)
		f.expectSession(session.DefaultTab)

		rr := httptest.NewRecorder()
		f.handler.Submit(rr, authed(httptest.NewRequest(http.MethodPost, "/api/v1/session/messages", strings.NewReader(`{"content":"   "}`))))

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp api.SubmitResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, session.OutcomeIgnored, resp.Outcome)
		assert.Empty(t, resp.State.Messages)
	})

	t.Run("Failure - Busy while another submit is in flight", func(t *testing.T) {
		// ARRANGE
		f := setupSessionHandler(t)
		f.expectSession(session.DefaultTab)
		chat := &model.Chat{ID: "chat-1", Title: "draw a fox", UserID: "user-1"}
		release := make(chan struct{})
		f.backend.On("CreateChat", mock.Anything, "user-1", "draw a fox").Return(chat, nil).Once()
		f.backend.On("Reply", mock.Anything, intent.Image, mock.Anything, "draw a fox").
			Run(func(mock.Arguments) { <-release }).
			Return(model.Message{}, errors.New("generator down")).Once()

		done := make(chan session.Outcome, 1)
		go func() { done <- f.session.Submit(context.Background(), "draw a fox") }()
		require.Eventually(t, func() bool { return f.session.Snapshot().IsGeneratingImage }, time.Second, 5*time.Millisecond)

		// ACT
		rr := httptest.NewRecorder()
		f.handler.Submit(rr, authed(httptest.NewRequest(http.MethodPost, "/api/v1/session/messages", strings.NewReader(`{"content":"hello"}`))))
		close(release)

		// ASSERT
		assert.Equal(t, http.StatusConflict, rr.Code)
		var resp api.SubmitResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, session.OutcomeBusy, resp.Outcome)
		assert.True(t, resp.State.IsGeneratingImage)
		require.Len(t, resp.State.Messages, 1)
		assert.Equal(t, "draw a fox", resp.State.Messages[0].Content)

		assert.Equal(t, session.OutcomeFailed, <-done)
	})

	t.Run("Failure - Content too long", func(t *testing.T) {
		f := setupSessionHandler(t)

		body, _ := json.Marshal(api.SubmitRequest{Content: strings.Repeat("a", 32001)})
		rr := httptest.NewRecorder()
		f.handler.Submit(rr, authed(httptest.NewRequest(http.MethodPost, "/api/v1/session/messages", strings.NewReader(string(body)))))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestSessionHandler_SelectAndStartNew(t *testing.T) {
	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	stored := []model.Chat{{ID: "chat-a", Title: "A", UserID: "user-1", Messages: []model.Message{
		{ID: "a1", Role: model.RoleUser, Content: "hi", Timestamp: ts},
		{ID: "a2", Role: model.RoleAssistant, Content: "hello", Timestamp: ts},
	}}}

	t.Run("Success - Select a known chat then start over", func(t *testing.T) {
		// ARRANGE
		f := setupSessionHandler(t)
		f.expectSession(session.DefaultTab)
		f.backend.On("ListChats", mock.Anything, "user-1").Return(stored, nil).Once()

		rr := httptest.NewRecorder()
		f.handler.Refresh(rr, authed(httptest.NewRequest(http.MethodPost, "/api/v1/session/refresh", nil)))
		require.Equal(t, http.StatusOK, rr.Code)
		require.Len(t, decodeSnapshot(t, rr).Chats, 1)

		// ACT
		rr = httptest.NewRecorder()
		f.handler.Select(rr, authed(httptest.NewRequest(http.MethodPost, "/api/v1/session/select", strings.NewReader(`{"chat_id":"chat-a"}`))))

		// ASSERT
		assert.Equal(t, http.StatusOK, rr.Code)
		snap := decodeSnapshot(t, rr)
		assert.Equal(t, "chat-a", snap.ActiveChatID)
		assert.Len(t, snap.Messages, 2)

		rr = httptest.NewRecorder()
		f.handler.StartNew(rr, authed(httptest.NewRequest(http.MethodPost, "/api/v1/session/new", nil)))

		assert.Equal(t, http.StatusOK, rr.Code)
		snap = decodeSnapshot(t, rr)
		assert.Empty(t, snap.ActiveChatID)
		assert.Empty(t, snap.Messages)
		assert.Len(t, snap.Chats, 1)
	})

	t.Run("Failure - Unknown chat", func(t *testing.T) {
		f := setupSessionHandler(t)
		f.expectSession(session.DefaultTab)

		rr := httptest.NewRecorder()
		f.handler.Select(rr, authed(httptest.NewRequest(http.MethodPost, "/api/v1/session/select", strings.NewReader(`{"chat_id":"nope"}`))))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("Failure - Missing chat id", func(t *testing.T) {
		f := setupSessionHandler(t)

		rr := httptest.NewRecorder()
		f.handler.Select(rr, authed(httptest.NewRequest(http.MethodPost, "/api/v1/session/select", strings.NewReader(`{}`))))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Failure - Refresh keeps the known chats on error", func(t *testing.T) {
		f := setupSessionHandler(t)
		f.expectSession(session.DefaultTab)
		f.backend.On("ListChats", mock.Anything, "user-1").Return(nil, app_errors.ErrUnavailable).Once()

		rr := httptest.NewRecorder()
		f.handler.Refresh(rr, authed(httptest.NewRequest(http.MethodPost, "/api/v1/session/refresh", nil)))

		assert.Equal(t, http.StatusBadGateway, rr.Code)
	})
}

func TestSessionHandler_Stream(t *testing.T) {
	t.Run("Success - Snapshot on connect and after a change", func(t *testing.T) {
		// ARRANGE
		f := setupSessionHandler(t)
		f.expectSession("tab-2")
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			f.handler.Stream(w, authed(r))
		}))
		defer srv.Close()

		// ACT
		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/?tab=tab-2", nil)
		require.NoError(t, err)
		defer conn.Close()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

		var first session.Snapshot
		require.NoError(t, conn.ReadJSON(&first))

		f.session.StartNew()

		var second session.Snapshot
		require.NoError(t, conn.ReadJSON(&second))

		// ASSERT
		assert.Greater(t, second.Version, first.Version)
	})

	t.Run("Failure - Foreign origin is refused", func(t *testing.T) {
		f := setupSessionHandler(t)
		f.expectSession(session.DefaultTab)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			f.handler.Stream(w, authed(r))
		}))
		defer srv.Close()

		header := http.Header{"Origin": []string{"https://evil.example"}}
		_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)

		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}
