package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPostgresPool connects to Postgres and verifies the connection.
func NewPostgresPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("postgres connection url is empty")
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(dialCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}

// EnsureSchema creates the chats, messages and settings tables when missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		strings.Join([]string{
			"CREATE TABLE IF NOT EXISTS chats (",
			"    id TEXT PRIMARY KEY,",
			"    user_id TEXT NOT NULL,",
			"    title TEXT NOT NULL,",
			"    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()",
			")",
		}, "\n"),
		"CREATE INDEX IF NOT EXISTS idx_chats_user_id_created_at ON chats(user_id, created_at DESC)",
		strings.Join([]string{
			"CREATE TABLE IF NOT EXISTS messages (",
			"    id TEXT PRIMARY KEY,",
			"    chat_id TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,",
			"    content TEXT NOT NULL,",
			"    role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),",
			"    image_url TEXT,",
			"    is_image BOOLEAN NOT NULL DEFAULT FALSE,",
			"    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()",
			")",
		}, "\n"),
		"CREATE INDEX IF NOT EXISTS idx_messages_chat_id_created_at ON messages(chat_id, created_at)",
		strings.Join([]string{
			"CREATE TABLE IF NOT EXISTS settings (",
			"    key TEXT PRIMARY KEY,",
			"    value TEXT NOT NULL",
			")",
		}, "\n"),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: ensure schema: %w", err)
		}
	}
	return nil
}
