// Package history turns stored conversation messages into completion input.
package history

import (
	"pictochat/backend/internal/llm"
	"pictochat/backend/internal/model"
)

// Project drops image messages and messages with a role other than user or
// assistant, keeps the remaining messages in order as role/content pairs and
// appends text as the newest user entry. It never mutates its input and
// performs no truncation.
func Project(messages []model.Message, text string) []llm.Message {
	out := make([]llm.Message, 0, len(messages)+1)
	for _, m := range messages {
		if m.IsImage || !m.Role.Valid() {
			continue
		}
		out = append(out, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	return append(out, llm.Message{Role: llm.RoleUser, Content: text})
}
