package repository

import (
	"database/sql"
	"sort"
	"time"

	"pictochat/backend/internal/model"
)

// messageRow mirrors one row of the messages table.
type messageRow struct {
	ID        string
	ChatID    string
	Content   string
	Role      string
	ImageURL  sql.NullString
	IsImage   bool
	CreatedAt time.Time
}

func (r messageRow) toModel() model.Message {
	return model.Message{
		ID:        r.ID,
		Content:   r.Content,
		Role:      model.Role(r.Role),
		Timestamp: r.CreatedAt,
		ImageURL:  r.ImageURL.String,
		IsImage:   r.IsImage,
	}
}

func nullableURL(u string) sql.NullString {
	return sql.NullString{String: u, Valid: u != ""}
}

func validTurn(user, assistant model.Message) bool {
	return user.Role == model.RoleUser && assistant.Role == model.RoleAssistant
}

// sortMessages orders messages by timestamp. Ties keep id order, which for
// UUIDv7 ids is creation order.
func sortMessages(msgs []model.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].Timestamp.Equal(msgs[j].Timestamp) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}

// attachMessages groups rows under their chats and sorts each chat's messages.
// Chats keep their incoming order; every chat gets a non-nil message slice.
func attachMessages(chats []model.Chat, rows []messageRow) []model.Chat {
	index := make(map[string]int, len(chats))
	for i := range chats {
		index[chats[i].ID] = i
		chats[i].Messages = []model.Message{}
	}
	for _, r := range rows {
		if i, ok := index[r.ChatID]; ok {
			chats[i].Messages = append(chats[i].Messages, r.toModel())
		}
	}
	for i := range chats {
		sortMessages(chats[i].Messages)
	}
	return chats
}

// sortChats orders chats newest first.
func sortChats(chats []model.Chat) {
	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].CreatedAt.After(chats[j].CreatedAt)
	})
}
