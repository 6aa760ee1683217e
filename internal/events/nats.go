package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// StreamName is the JetStream stream holding turn events.
const StreamName = "PICTOCHAT_TURNS"

type natsPublisher struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	prefix string
}

// NewNATSPublisher connects to NATS and makes sure the turn stream exists.
func NewNATSPublisher(ctx context.Context, url, prefix string) (Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("pictochat-backend"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	prefix = strings.Trim(prefix, ".")
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{prefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Description: "Stored chat turns",
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream: %w", err)
	}

	return &natsPublisher{conn: nc, js: js, prefix: prefix}, nil
}

func (p *natsPublisher) PublishTurn(ctx context.Context, event TurnEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal turn event: %w", err)
	}
	if _, err := p.js.Publish(ctx, TurnSubject(p.prefix, event.ChatID), data); err != nil {
		return fmt.Errorf("failed to publish turn event: %w", err)
	}
	return nil
}

func (p *natsPublisher) Close() error {
	return p.conn.Drain()
}
