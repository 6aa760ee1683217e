package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the two stored roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is a single turn half. ID is generated where the message is created
// (UUIDv7, so ids sort in creation order).
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Role      Role      `json:"role" validate:"oneof=user assistant"`
	Timestamp time.Time `json:"timestamp"`
	ImageURL  string    `json:"image_url,omitempty"`
	IsImage   bool      `json:"is_image"`
	// Unsent marks messages that were never mirrored to durable storage:
	// a user message whose chat could not be created, a user message whose
	// reply failed, and apology replies. It is never persisted.
	Unsent bool `json:"unsent,omitempty"`
}

// NewMessage creates a message stamped with the current time and a fresh id.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Content:   content,
		Role:      role,
		Timestamp: time.Now().UTC(),
	}
}

// Chat is a persisted conversation with its messages in chronological order.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UserID    string    `json:"user_id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a deep copy of c.
func (c Chat) Clone() Chat {
	out := c
	out.Messages = append([]Message(nil), c.Messages...)
	return out
}

// Identity is the user profile supplied by the authentication provider.
type Identity struct {
	Subject string `json:"sub"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
}

const (
	// TitleMaxRunes is the number of leading characters of the first message
	// used as a chat title.
	TitleMaxRunes = 50

	TextApology  = "Sorry, I encountered an error. Please try again."
	ImageApology = "Sorry, I couldn't generate the image. Please try again."
)

// ChatTitle derives a chat title from the first message of a conversation.
func ChatTitle(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= TitleMaxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:TitleMaxRunes]) + "…"
}

// ImageCaption is the assistant text attached to a generated image.
func ImageCaption(prompt string) string {
	return fmt.Sprintf("I've generated an image based on your request: \"%s\"", prompt)
}
