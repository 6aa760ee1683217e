package session

import (
	app_errors "pictochat/backend/internal/errors"
	"pictochat/backend/internal/model"
)

// State is the conversation state of one session: the active conversation,
// its messages in order and the user's known conversations, newest first.
// An empty ActiveID means a new conversation that is not stored yet.
//
// State is not safe for concurrent use; Session guards it.
type State struct {
	ActiveID string
	Active   []model.Message
	Known    []model.Chat

	// epoch changes whenever the active view is replaced.
	epoch uint64
}

// StartNew leaves the active conversation and clears the view.
func (s *State) StartNew() {
	s.commitActive()
	s.ActiveID = ""
	s.Active = nil
	s.epoch++
}

// Select makes chatID the active conversation and loads its messages. An id
// that is not in the known list returns ErrNotFound and changes nothing.
func (s *State) Select(chatID string) error {
	idx := s.knownIndex(chatID)
	if idx < 0 {
		return app_errors.ErrNotFound
	}
	s.commitActive()
	s.ActiveID = chatID
	s.Active = append([]model.Message(nil), s.Known[idx].Messages...)
	s.epoch++
	return nil
}

// ReplaceKnown swaps the known list wholesale. The active view is untouched.
func (s *State) ReplaceKnown(chats []model.Chat) {
	known := make([]model.Chat, len(chats))
	for i := range chats {
		known[i] = chats[i].Clone()
	}
	s.Known = known
}

// MergeKnown replaces the known list with chats like ReplaceKnown, but keeps
// known conversations missing from chats in front of them and appends the
// stored messages chats lacks. It is used when chats may predate local
// changes.
func (s *State) MergeKnown(chats []model.Chat) {
	fetched := make(map[string]int, len(chats))
	for i := range chats {
		fetched[chats[i].ID] = i
	}
	known := make([]model.Chat, 0, len(chats))
	for i := range s.Known {
		if _, ok := fetched[s.Known[i].ID]; !ok {
			known = append(known, s.Known[i].Clone())
		}
	}
	for i := range chats {
		c := chats[i].Clone()
		if idx := s.knownIndex(c.ID); idx >= 0 {
			for _, m := range s.Known[idx].Messages {
				if !m.Unsent && !containsMessage(c.Messages, m.ID) {
					c.Messages = append(c.Messages, m)
				}
			}
		}
		known = append(known, c)
	}
	s.Known = known
}

// Clone returns a deep copy of s.
func (s *State) Clone() State {
	out := State{
		ActiveID: s.ActiveID,
		Active:   append([]model.Message(nil), s.Active...),
		Known:    make([]model.Chat, len(s.Known)),
		epoch:    s.epoch,
	}
	for i := range s.Known {
		out.Known[i] = s.Known[i].Clone()
	}
	return out
}

// commitActive writes the active messages that reached storage back into the
// known entry so reselecting the conversation shows them.
func (s *State) commitActive() {
	if s.ActiveID == "" {
		return
	}
	idx := s.knownIndex(s.ActiveID)
	if idx < 0 {
		return
	}
	kept := make([]model.Message, 0, len(s.Active))
	for _, m := range s.Active {
		if !m.Unsent {
			kept = append(kept, m)
		}
	}
	s.Known[idx].Messages = kept
}

func (s *State) knownIndex(chatID string) int {
	for i := range s.Known {
		if s.Known[i].ID == chatID {
			return i
		}
	}
	return -1
}

func (s *State) prependKnown(chat model.Chat) {
	s.Known = append([]model.Chat{chat.Clone()}, s.Known...)
}

// appendKnown adds messages to a known conversation, skipping ids it already holds.
func (s *State) appendKnown(chatID string, messages ...model.Message) bool {
	idx := s.knownIndex(chatID)
	if idx < 0 {
		return false
	}
	for _, m := range messages {
		if !containsMessage(s.Known[idx].Messages, m.ID) {
			s.Known[idx].Messages = append(s.Known[idx].Messages, m)
		}
	}
	return true
}

// markUnsent flags the message with id in the active view and in the known
// entry of chatID.
func (s *State) markUnsent(chatID, id string) {
	markIn(s.Active, id)
	if idx := s.knownIndex(chatID); idx >= 0 {
		markIn(s.Known[idx].Messages, id)
	}
}

func markIn(messages []model.Message, id string) {
	for i := range messages {
		if messages[i].ID == id {
			messages[i].Unsent = true
		}
	}
}

func containsMessage(messages []model.Message, id string) bool {
	for i := range messages {
		if messages[i].ID == id {
			return true
		}
	}
	return false
}
