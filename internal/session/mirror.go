package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"pictochat/backend/internal/events"
	"pictochat/backend/internal/metrics"
	"pictochat/backend/internal/model"
)

// TurnSaver stores a completed turn.
type TurnSaver interface {
	SaveTurn(ctx context.Context, chatID string, user, assistant model.Message) error
}

// Mirror writes completed turns to durable storage in the background. The
// session never waits for it; failures are logged and counted only.
type Mirror struct {
	saver     TurnSaver
	publisher events.Publisher
	timeout   time.Duration

	wg sync.WaitGroup
}

func NewMirror(saver TurnSaver, publisher events.Publisher, timeout time.Duration) *Mirror {
	if publisher == nil {
		publisher = events.NewNopPublisher()
	}
	return &Mirror{saver: saver, publisher: publisher, timeout: timeout}
}

// Save stores the turn in a new goroutine and, once stored, publishes a turn event.
func (m *Mirror) Save(userID, chatID, intent string, user, assistant model.Message) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ctx, cancel := m.context()
		defer cancel()

		if err := m.saver.SaveTurn(ctx, chatID, user, assistant); err != nil {
			metrics.PersistenceFailuresTotal.Inc()
			slog.Error("Failed to persist turn", "chat_id", chatID, "user_message_id", user.ID, "error", err)
			return
		}

		event := events.TurnEvent{
			ChatID:     chatID,
			UserID:     userID,
			Intent:     intent,
			User:       user,
			Assistant:  assistant,
			OccurredAt: time.Now().UTC(),
		}
		if err := m.publisher.PublishTurn(ctx, event); err != nil {
			slog.Warn("Failed to publish turn event", "chat_id", chatID, "error", err)
		}
	}()
}

// Wait blocks until every pending write has finished.
func (m *Mirror) Wait() {
	m.wg.Wait()
}

func (m *Mirror) context() (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), m.timeout)
}
