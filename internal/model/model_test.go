package model_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"pictochat/backend/internal/model"
)

func TestChatTitle(t *testing.T) {
	t.Run("Short text is kept as is", func(t *testing.T) {
		assert.Equal(t, "Hello there", model.ChatTitle("  Hello there  "))
	})

	t.Run("Exactly fifty characters are not truncated", func(t *testing.T) {
		text := strings.Repeat("a", 50)
		assert.Equal(t, text, model.ChatTitle(text))
	})

	t.Run("Long text is cut at fifty characters with an ellipsis", func(t *testing.T) {
		text := strings.Repeat("b", 80)
		assert.Equal(t, strings.Repeat("b", 50)+"…", model.ChatTitle(text))
	})

	t.Run("Multi-byte characters are counted as runes", func(t *testing.T) {
		text := strings.Repeat("é", 51)
		title := model.ChatTitle(text)
		assert.Equal(t, strings.Repeat("é", 50)+"…", title)
	})
}

func TestImageCaption(t *testing.T) {
	assert.Equal(t,
		`I've generated an image based on your request: "draw a cat"`,
		model.ImageCaption("draw a cat"))
}

func TestRoleValid(t *testing.T) {
	assert.True(t, model.RoleUser.Valid())
	assert.True(t, model.RoleAssistant.Valid())
	assert.False(t, model.Role("system").Valid())
}

func TestChatClone(t *testing.T) {
	original := model.Chat{ID: "c1", Messages: []model.Message{{ID: "m1"}}}
	clone := original.Clone()
	clone.Messages[0].Content = "changed"
	assert.Empty(t, original.Messages[0].Content)
}

func TestNewMessage(t *testing.T) {
	first := model.NewMessage(model.RoleUser, "a")
	second := model.NewMessage(model.RoleAssistant, "b")

	assert.NotEmpty(t, first.ID)
	assert.Equal(t, model.RoleUser, first.Role)
	assert.False(t, first.Timestamp.IsZero())
	assert.Less(t, first.ID, second.ID, "ids sort in creation order")
}
