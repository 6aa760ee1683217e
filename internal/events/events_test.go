package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pictochat/backend/internal/events"
)

func TestTurnSubject(t *testing.T) {
	assert.Equal(t, "pictochat.chat-1.turn", events.TurnSubject("pictochat", "chat-1"))
}

func TestNopPublisher(t *testing.T) {
	p := events.NewNopPublisher()
	assert.NoError(t, p.PublishTurn(context.Background(), events.TurnEvent{ChatID: "c"}))
	assert.NoError(t, p.Close())
}

func TestNewNATSPublisher_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := events.NewNATSPublisher(ctx, "nats://127.0.0.1:1", "pictochat")
	assert.Error(t, err)
}
