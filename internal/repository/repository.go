package repository

import (
	"context"

	"pictochat/backend/internal/model"
)

// Repository defines the durable store for chats and their messages.
// Implementations must be safe for concurrent use.
type Repository interface {
	// CreateChat stores a new, empty chat owned by userID and returns it with
	// its store-assigned id.
	CreateChat(ctx context.Context, userID, title string) (*model.Chat, error)
	GetChat(ctx context.Context, chatID string) (*model.Chat, error)
	// ListChats returns the user's chats newest first, each with its messages
	// in chronological order.
	ListChats(ctx context.Context, userID string) ([]model.Chat, error)
	// AddTurn stores a user message and its assistant reply atomically.
	AddTurn(ctx context.Context, chatID string, user, assistant model.Message) error
}

// SettingsRepository stores runtime settings as key/value pairs.
type SettingsRepository interface {
	LoadSettings(ctx context.Context) (map[string]string, error)
	SaveSettings(ctx context.Context, values map[string]string) error
}
