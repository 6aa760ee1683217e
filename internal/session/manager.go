package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"pictochat/backend/internal/metrics"
	"pictochat/backend/internal/model"
)

const DefaultTab = "default"

// Manager owns the sessions of all users, one per subject and tab.
type Manager struct {
	backend Backend
	mirror  *Mirror

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(backend Backend, mirror *Mirror) *Manager {
	return &Manager{
		backend:  backend,
		mirror:   mirror,
		sessions: make(map[string]*Session),
	}
}

func key(subject, tabID string) string {
	if tabID == "" {
		tabID = DefaultTab
	}
	return subject + "\x00" + tabID
}

// Get returns the session of identity in tabID. A new session loads the
// known conversations before it is returned; if that fails nothing is kept.
func (m *Manager) Get(ctx context.Context, identity model.Identity, tabID string) (*Session, error) {
	k := key(identity.Subject, tabID)

	m.mu.Lock()
	if s, ok := m.sessions[k]; ok {
		m.mu.Unlock()
		s.touch()
		return s, nil
	}
	m.mu.Unlock()

	s := New(identity, m.backend, m.mirror)
	if _, err := s.Refresh(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[k]; ok {
		return existing, nil
	}
	m.sessions[k] = s
	metrics.SessionsActive.Set(float64(len(m.sessions)))
	slog.Info("Session started", "user_id", identity.Subject, "tab", tabID)
	return s, nil
}

// Sweep drops sessions unused for longer than maxIdle. Sessions with a
// submit in flight or an open stream are kept. It returns how many were dropped.
func (m *Manager) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()

	dropped := 0
	for k, s := range m.sessions {
		last, ok := s.idleSince()
		if ok && last.Before(cutoff) {
			delete(m.sessions, k)
			dropped++
		}
	}
	metrics.SessionsActive.Set(float64(len(m.sessions)))
	if dropped > 0 {
		slog.Debug("Swept idle sessions", "count", dropped)
	}
	return dropped
}

// Run sweeps on every tick until ctx is done.
func (m *Manager) Run(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(maxIdle)
		}
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
