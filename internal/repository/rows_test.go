package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pictochat/backend/internal/model"
)

func TestSortMessages(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	msgs := []model.Message{
		{ID: "c", Timestamp: ts.Add(time.Second)},
		{ID: "b", Timestamp: ts},
		{ID: "a", Timestamp: ts},
	}

	sortMessages(msgs)

	assert.Equal(t, []string{"a", "b", "c"}, []string{msgs[0].ID, msgs[1].ID, msgs[2].ID})
}

func TestAttachMessages(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	chats := []model.Chat{{ID: "c1"}, {ID: "c2"}}
	rows := []messageRow{
		{ID: "m2", ChatID: "c1", Role: "assistant", Content: "later", CreatedAt: ts.Add(time.Second)},
		{ID: "m1", ChatID: "c1", Role: "user", Content: "earlier", CreatedAt: ts},
		{ID: "m3", ChatID: "orphan", Role: "user", CreatedAt: ts},
	}
	rows[0].ImageURL = nullableURL("http://img")

	got := attachMessages(chats, rows)

	require.Len(t, got[0].Messages, 2)
	assert.Equal(t, "earlier", got[0].Messages[0].Content)
	assert.Equal(t, "http://img", got[0].Messages[1].ImageURL)
	assert.NotNil(t, got[1].Messages)
	assert.Empty(t, got[1].Messages)
}

func TestSortChats(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	chats := []model.Chat{{ID: "old", CreatedAt: ts}, {ID: "new", CreatedAt: ts.Add(time.Hour)}}
	sortChats(chats)
	assert.Equal(t, "new", chats[0].ID)
}
