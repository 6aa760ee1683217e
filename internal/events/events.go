// Package events publishes durable chat turns to a message broker.
package events

import (
	"context"
	"fmt"
	"time"

	"pictochat/backend/internal/model"
)

// TurnEvent is emitted after a user message and its reply were stored.
type TurnEvent struct {
	ChatID     string        `json:"chat_id"`
	UserID     string        `json:"user_id"`
	Intent     string        `json:"intent"`
	User       model.Message `json:"user"`
	Assistant  model.Message `json:"assistant"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// Publisher delivers turn events. Implementations must be safe for concurrent use.
type Publisher interface {
	PublishTurn(ctx context.Context, event TurnEvent) error
	Close() error
}

// TurnSubject returns the subject a turn of chatID is published on.
func TurnSubject(prefix, chatID string) string {
	return fmt.Sprintf("%s.%s.turn", prefix, chatID)
}

type nopPublisher struct{}

// NewNopPublisher returns a Publisher that drops every event.
func NewNopPublisher() Publisher { return nopPublisher{} }

func (nopPublisher) PublishTurn(context.Context, TurnEvent) error { return nil }
func (nopPublisher) Close() error                                { return nil }
