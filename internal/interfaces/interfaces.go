package interfaces

import (
	"context"

	"pictochat/backend/internal/model"
	"pictochat/backend/internal/service"
	"pictochat/backend/internal/session"
)

// Handlers depend on these interfaces rather than on the concrete services.

// ChatService is the set of stateless chat procedures.
type ChatService interface {
	CreateChat(ctx context.Context, userID, title string) (*model.Chat, error)
	ListChats(ctx context.Context, userID string) ([]model.Chat, error)
	GetChat(ctx context.Context, userID, chatID string) (*model.Chat, error)
	SendMessage(ctx context.Context, userID string, req service.SendMessageRequest) (*service.SendMessageResult, error)
}

// SettingsService manages the runtime settings.
type SettingsService interface {
	Get(ctx context.Context) (*service.Settings, error)
	Save(ctx context.Context, settings *service.Settings) error
}

// SessionManager hands out the conversation session of a user's tab.
type SessionManager interface {
	Get(ctx context.Context, identity model.Identity, tabID string) (*session.Session, error)
}
