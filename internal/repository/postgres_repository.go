package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"pictochat/backend/internal/model"
)

// PgxPool is the part of *pgxpool.Pool the repository uses.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository implements Repository and SettingsRepository on a pgx pool.
type PostgresRepository struct {
	pool PgxPool
}

func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) CreateChat(ctx context.Context, userID, title string) (*model.Chat, error) {
	chat := &model.Chat{
		ID:       uuid.NewString(),
		Title:    title,
		UserID:   userID,
		Messages: []model.Message{},
	}
	err := r.pool.QueryRow(ctx,
		"INSERT INTO chats (id, user_id, title) VALUES ($1, $2, $3) RETURNING created_at",
		chat.ID, chat.UserID, chat.Title,
	).Scan(&chat.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("postgres: insert chat: %w", err)
	}
	chat.CreatedAt = chat.CreatedAt.UTC()
	return chat, nil
}

func (r *PostgresRepository) GetChat(ctx context.Context, chatID string) (*model.Chat, error) {
	var chat model.Chat
	err := r.pool.QueryRow(ctx,
		"SELECT id, user_id, title, created_at FROM chats WHERE id = $1", chatID,
	).Scan(&chat.ID, &chat.UserID, &chat.Title, &chat.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("postgres: query chat: %w", err)
	}

	rows, err := r.queryMessages(ctx,
		"SELECT id, chat_id, content, role, image_url, is_image, created_at FROM messages WHERE chat_id = $1 ORDER BY created_at ASC",
		chatID)
	if err != nil {
		return nil, err
	}
	return &attachMessages([]model.Chat{chat}, rows)[0], nil
}

func (r *PostgresRepository) ListChats(ctx context.Context, userID string) ([]model.Chat, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT id, user_id, title, created_at FROM chats WHERE user_id = $1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: query chats: %w", err)
	}
	chats, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Chat, error) {
		var c model.Chat
		err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan chats: %w", err)
	}
	if len(chats) == 0 {
		return []model.Chat{}, nil
	}

	msgRows, err := r.queryMessages(ctx, `
		SELECT m.id, m.chat_id, m.content, m.role, m.image_url, m.is_image, m.created_at
		FROM messages m
		JOIN chats c ON c.id = m.chat_id
		WHERE c.user_id = $1
		ORDER BY m.created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	return attachMessages(chats, msgRows), nil
}

func (r *PostgresRepository) queryMessages(ctx context.Context, query string, args ...any) ([]messageRow, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query messages: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (messageRow, error) {
		var m messageRow
		var imageURL *string
		var createdAt time.Time
		err := row.Scan(&m.ID, &m.ChatID, &m.Content, &m.Role, &imageURL, &m.IsImage, &createdAt)
		if imageURL != nil {
			m.ImageURL = nullableURL(*imageURL)
		}
		m.CreatedAt = createdAt.UTC()
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan messages: %w", err)
	}
	return out, nil
}

// AddTurn inserts both messages in one transaction.
func (r *PostgresRepository) AddTurn(ctx context.Context, chatID string, user, assistant model.Message) error {
	if !validTurn(user, assistant) {
		return ErrInvalidTurn
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists int
	if err := tx.QueryRow(ctx, "SELECT 1 FROM chats WHERE id = $1", chatID).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("postgres: look up chat: %w", err)
	}

	for _, m := range []model.Message{user, assistant} {
		var imageURL *string
		if m.ImageURL != "" {
			u := m.ImageURL
			imageURL = &u
		}
		_, err := tx.Exec(ctx,
			"INSERT INTO messages (id, chat_id, content, role, image_url, is_image, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)",
			m.ID, chatID, m.Content, string(m.Role), imageURL, m.IsImage, m.Timestamp.UTC(),
		)
		if err != nil {
			return fmt.Errorf("postgres: insert %s message: %w", m.Role, err)
		}
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) LoadSettings(ctx context.Context) (map[string]string, error) {
	rows, err := r.pool.Query(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return nil, fmt.Errorf("postgres: query settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("postgres: scan setting: %w", err)
		}
		values[k] = v
	}
	return values, rows.Err()
}

func (r *PostgresRepository) SaveSettings(ctx context.Context, values map[string]string) error {
	batch := &pgx.Batch{}
	for _, k := range sortedKeys(values) {
		batch.Queue("INSERT INTO settings (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value", k, values[k])
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
}
