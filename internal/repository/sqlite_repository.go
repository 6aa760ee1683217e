package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"pictochat/backend/internal/model"
)

// SQLiteRepository implements Repository and SettingsRepository on SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository wraps an initialised database (see database.InitDB).
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *SQLiteRepository) CreateChat(ctx context.Context, userID, title string) (*model.Chat, error) {
	chat := &model.Chat{
		ID:        uuid.NewString(),
		Title:     title,
		UserID:    userID,
		Messages:  []model.Message{},
		CreatedAt: r.now(),
	}
	query := "INSERT INTO chats (id, user_id, title, created_at) VALUES (?, ?, ?, ?)"
	if _, err := r.db.ExecContext(ctx, query, chat.ID, chat.UserID, chat.Title, chat.CreatedAt); err != nil {
		return nil, fmt.Errorf("could not insert chat: %w", err)
	}
	return chat, nil
}

func (r *SQLiteRepository) GetChat(ctx context.Context, chatID string) (*model.Chat, error) {
	query := "SELECT id, user_id, title, created_at FROM chats WHERE id = ?"
	var chat model.Chat
	err := r.db.QueryRowContext(ctx, query, chatID).Scan(&chat.ID, &chat.UserID, &chat.Title, &chat.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("could not query chat: %w", err)
	}

	rows, err := r.queryMessages(ctx,
		"SELECT id, chat_id, content, role, image_url, is_image, created_at FROM messages WHERE chat_id = ? ORDER BY created_at ASC",
		chatID)
	if err != nil {
		return nil, err
	}
	return &attachMessages([]model.Chat{chat}, rows)[0], nil
}

func (r *SQLiteRepository) ListChats(ctx context.Context, userID string) ([]model.Chat, error) {
	query := "SELECT id, user_id, title, created_at FROM chats WHERE user_id = ? ORDER BY created_at DESC"
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("could not query chats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	chats := []model.Chat{}
	for rows.Next() {
		var chat model.Chat
		if err := rows.Scan(&chat.ID, &chat.UserID, &chat.Title, &chat.CreatedAt); err != nil {
			return nil, fmt.Errorf("could not scan chat: %w", err)
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate chats: %w", err)
	}
	if len(chats) == 0 {
		return chats, nil
	}

	msgRows, err := r.queryMessages(ctx, `
		SELECT m.id, m.chat_id, m.content, m.role, m.image_url, m.is_image, m.created_at
		FROM messages m
		JOIN chats c ON c.id = m.chat_id
		WHERE c.user_id = ?
		ORDER BY m.created_at ASC`, userID)
	if err != nil {
		return nil, err
	}

	// SQLite compares the stored timestamps as text.
	sortChats(chats)
	return attachMessages(chats, msgRows), nil
}

func (r *SQLiteRepository) queryMessages(ctx context.Context, query string, args ...any) ([]messageRow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []messageRow
	for rows.Next() {
		var m messageRow
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Content, &m.Role, &m.ImageURL, &m.IsImage, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("could not scan message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate messages: %w", err)
	}
	return out, nil
}

// AddTurn inserts both messages in one transaction so a chat never holds a user
// message without its reply.
func (r *SQLiteRepository) AddTurn(ctx context.Context, chatID string, user, assistant model.Message) error {
	if !validTurn(user, assistant) {
		return ErrInvalidTurn
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	// Rollback is a no-op after a successful Commit.
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT 1 FROM chats WHERE id = ?", chatID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("could not look up chat: %w", err)
	}

	insert := `
		INSERT INTO messages (id, chat_id, content, role, image_url, is_image, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for _, m := range []model.Message{user, assistant} {
		_, err := tx.ExecContext(ctx, insert,
			m.ID,
			chatID,
			m.Content,
			string(m.Role),
			nullableURL(m.ImageURL),
			m.IsImage,
			m.Timestamp.UTC(),
		)
		if err != nil {
			return fmt.Errorf("could not insert %s message: %w", m.Role, err)
		}
	}

	return tx.Commit()
}

func (r *SQLiteRepository) LoadSettings(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return nil, fmt.Errorf("could not query settings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("could not scan setting: %w", err)
		}
		values[k] = v
	}
	return values, rows.Err()
}

func (r *SQLiteRepository) SaveSettings(ctx context.Context, values map[string]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value")
	if err != nil {
		return fmt.Errorf("could not prepare settings statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, k := range sortedKeys(values) {
		if _, err := stmt.ExecContext(ctx, k, values[k]); err != nil {
			return fmt.Errorf("could not save setting %s: %w", k, err)
		}
	}
	return tx.Commit()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
