package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"pictochat/backend/internal/interfaces"
	"pictochat/backend/internal/metrics"
	"pictochat/backend/internal/session"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// SessionHandler exposes the conversation session of the caller's tab.
type SessionHandler struct {
	sessions interfaces.SessionManager
	upgrader websocket.Upgrader
}

// NewSessionHandler creates the handler. allowedOrigins restricts which
// pages may open the snapshot stream; "*" allows any.
func NewSessionHandler(sessions interfaces.SessionManager, allowedOrigins []string) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 32 * 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}

func (h *SessionHandler) session(r *http.Request) (*session.Session, error) {
	identity, err := identityFrom(r)
	if err != nil {
		return nil, err
	}
	return h.sessions.Get(r.Context(), identity, tabID(r))
}

// GetSession godoc
// @Summary      Session state
// @Description  Returns the active conversation, its messages and the known chats of this tab.
// @Tags         Session
// @Produce      json
// @Param        X-Tab-ID  header    string  false  "Browser tab"
// @Success      200       {object}  session.Snapshot
// @Failure      502       {object}  ErrorResponse
// @Router       /v1/session [get]
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, s.Snapshot())
}

// Submit godoc
// @Summary      Submit a message
// @Description  Dispatches a message in the active conversation. The call returns once the reply
// @Description  is merged. A submit while another is in flight answers 409 with outcome "busy".
// @Tags         Session
// @Accept       json
// @Produce      json
// @Param        X-Tab-ID  header    string         false  "Browser tab"
// @Param        request   body      SubmitRequest  true   "Message"
// @Success      200       {object}  SubmitResponse
// @Failure      409       {object}  SubmitResponse
// @Failure      400       {object}  ErrorResponse
// @Router       /v1/session/messages [post]
func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	s, err := h.session(r)
	if err != nil {
		respondWithError(w, err)
		return
	}

	// A client that goes away does not abort the dispatch.
	outcome := s.Submit(context.WithoutCancel(r.Context()), req.Content)

	status := http.StatusOK
	if outcome == session.OutcomeBusy {
		status = http.StatusConflict
	}
	respondWithJSON(w, status, SubmitResponse{Outcome: outcome, State: s.Snapshot()})
}

// StartNew godoc
// @Summary      Start a new conversation
// @Tags         Session
// @Produce      json
// @Param        X-Tab-ID  header    string  false  "Browser tab"
// @Success      200       {object}  session.Snapshot
// @Router       /v1/session/new [post]
func (h *SessionHandler) StartNew(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, s.StartNew())
}

// Select godoc
// @Summary      Switch conversation
// @Description  Makes a known chat the active conversation.
// @Tags         Session
// @Accept       json
// @Produce      json
// @Param        X-Tab-ID  header    string         false  "Browser tab"
// @Param        request   body      SelectRequest  true   "Chat to select"
// @Success      200       {object}  session.Snapshot
// @Failure      404       {object}  ErrorResponse
// @Router       /v1/session/select [post]
func (h *SessionHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	s, err := h.session(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	snap, err := s.Select(req.ChatID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, snap)
}

// Refresh godoc
// @Summary      Reload known chats
// @Tags         Session
// @Produce      json
// @Param        X-Tab-ID  header    string  false  "Browser tab"
// @Success      200       {object}  session.Snapshot
// @Failure      502       {object}  ErrorResponse
// @Router       /v1/session/refresh [post]
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	snap, err := s.Refresh(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, snap)
}

// Stream godoc
// @Summary      Session snapshot stream
// @Description  WebSocket that sends the session snapshot on connect and after every change.
// @Tags         Session
// @Param        tab  query  string  false  "Browser tab"
// @Router       /v1/session/ws [get]
func (h *SessionHandler) Stream(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		respondWithError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	metrics.WebSocketConnectionsActive.Inc()
	defer metrics.WebSocketConnectionsActive.Dec()

	updates, unsubscribe := s.Subscribe()
	defer unsubscribe()

	// The read loop only serves control frames and notices the close.
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(snap); err != nil {
				slog.Debug("Snapshot stream closed", "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
