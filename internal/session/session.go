// Package session holds the server-side conversation state of each browser
// tab and dispatches submitted messages against it.
package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pictochat/backend/internal/intent"
	"pictochat/backend/internal/metrics"
	"pictochat/backend/internal/model"
	"pictochat/backend/internal/tracing"
)

// Backend is what a session needs from the server procedures.
type Backend interface {
	CreateChat(ctx context.Context, userID, title string) (*model.Chat, error)
	ListChats(ctx context.Context, userID string) ([]model.Chat, error)
	Reply(ctx context.Context, kind intent.Kind, prior []model.Message, text string) (model.Message, error)
	TurnSaver
}

// Outcome is the result of one Submit.
type Outcome string

const (
	// OutcomeIgnored: the input was empty.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeBusy: another submit was in flight.
	OutcomeBusy Outcome = "busy"
	// OutcomeAbandoned: the conversation could not be created.
	OutcomeAbandoned Outcome = "abandoned"
	// OutcomeCompleted: the reply was appended to the active conversation.
	OutcomeCompleted Outcome = "completed"
	// OutcomeFailed: the remote call failed and an apology was shown.
	OutcomeFailed Outcome = "failed"
	// OutcomeDiscarded: the reply landed after the user left the conversation.
	OutcomeDiscarded Outcome = "discarded"
)

// Snapshot is the UI-facing copy of a session.
type Snapshot struct {
	ActiveChatID      string          `json:"active_chat_id,omitempty"`
	Messages          []model.Message `json:"messages"`
	Chats             []model.Chat    `json:"chats"`
	IsLoading         bool            `json:"is_loading"`
	IsGeneratingImage bool            `json:"is_generating_image"`
	Version           uint64          `json:"version"`
}

// Session is the conversation state of one user in one tab. All methods are
// safe for concurrent use.
type Session struct {
	identity model.Identity
	backend  Backend
	mirror   *Mirror
	tracer   trace.Tracer

	mu              sync.Mutex
	state           State
	loading         bool
	generatingImage bool
	version         uint64
	lastUsed        time.Time
	subscribers     map[int]chan Snapshot
	nextSubscriber  int
}

func New(identity model.Identity, backend Backend, mirror *Mirror) *Session {
	return &Session{
		identity:    identity,
		backend:     backend,
		mirror:      mirror,
		tracer:      tracing.Tracer("pictochat/session"),
		lastUsed:    time.Now(),
		subscribers: make(map[int]chan Snapshot),
	}
}

func (s *Session) Identity() model.Identity { return s.identity }

// Snapshot returns a deep copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// StartNew clears the active conversation.
func (s *Session) StartNew() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.StartNew()
	s.changedLocked()
	return s.snapshotLocked()
}

// Select makes a known conversation active.
func (s *Session) Select(chatID string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.state.Select(chatID); err != nil {
		return s.snapshotLocked(), err
	}
	s.changedLocked()
	return s.snapshotLocked(), nil
}

// Refresh reloads the known conversations from storage. When the session
// changed while storage was read, conversations and stored messages the read
// missed are kept.
func (s *Session) Refresh(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	since := s.version
	s.mu.Unlock()

	chats, err := s.backend.ListChats(ctx, s.identity.Subject)
	if err != nil {
		return s.Snapshot(), err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version == since {
		s.state.ReplaceKnown(chats)
	} else {
		s.state.MergeKnown(chats)
	}
	s.changedLocked()
	return s.snapshotLocked(), nil
}

// Submit dispatches one user message: it appends the message, creates the
// conversation on first use, asks for a reply and merges it. Only one submit
// runs at a time; a second one returns OutcomeBusy without touching state.
func (s *Session) Submit(ctx context.Context, raw string) Outcome {
	text := strings.TrimSpace(raw)
	if text == "" {
		return OutcomeIgnored
	}
	kind := intent.Classify(text)

	ctx, span := s.tracer.Start(ctx, "session.Submit", trace.WithAttributes(
		attribute.String("intent", string(kind)),
		attribute.String("user.id", s.identity.Subject),
	))
	defer span.End()

	outcome := s.dispatch(ctx, kind, text)

	span.SetAttributes(attribute.String("outcome", string(outcome)))
	if outcome == OutcomeFailed || outcome == OutcomeAbandoned {
		span.SetStatus(codes.Error, string(outcome))
	}
	metrics.RecordDispatch(string(kind), string(outcome))
	return outcome
}

func (s *Session) dispatch(ctx context.Context, kind intent.Kind, text string) (outcome Outcome) {
	userMsg := model.NewMessage(model.RoleUser, text)

	s.mu.Lock()
	if s.loading || s.generatingImage {
		s.mu.Unlock()
		return OutcomeBusy
	}
	prior := append([]model.Message(nil), s.state.Active...)
	s.state.Active = append(s.state.Active, userMsg)
	s.loading = true
	s.generatingImage = kind == intent.Image
	target := s.state.ActiveID
	epoch := s.state.epoch
	s.changedLocked()
	s.mu.Unlock()

	// A panicking backend must not leave the session busy for good.
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Dispatch panicked", "user_id", s.identity.Subject, "chat_id", target, "panic", r)
			outcome = s.fail(kind, target, userMsg.ID, epoch)
		}
	}()

	if target == "" {
		chat, ok := s.adoptCreated(ctx, text, userMsg.ID, epoch)
		if !ok {
			return OutcomeAbandoned
		}
		target = chat.ID
	}

	reply, err := s.backend.Reply(ctx, kind, prior, text)
	if err != nil {
		slog.Error("Reply failed", "chat_id", target, "intent", kind, "error", err)
		return s.fail(kind, target, userMsg.ID, epoch)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.finishLocked()

	s.mirror.Save(s.identity.Subject, target, string(kind), userMsg, reply)

	if s.state.ActiveID != target {
		s.state.appendKnown(target, userMsg, reply)
		slog.Info("Reply landed after conversation switch", "chat_id", target)
		return OutcomeDiscarded
	}
	s.state.Active = append(s.state.Active, reply)
	return OutcomeCompleted
}

// adoptCreated stores the conversation the first message of a new view
// belongs to. On failure the message is marked unsent and ok is false.
func (s *Session) adoptCreated(ctx context.Context, text, userMsgID string, epoch uint64) (*model.Chat, bool) {
	chat, err := s.backend.CreateChat(ctx, s.identity.Subject, model.ChatTitle(text))

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		slog.Error("Failed to create chat, message not sent", "user_id", s.identity.Subject, "error", err)
		if s.state.epoch == epoch {
			markIn(s.state.Active, userMsgID)
		}
		s.finishLocked()
		return nil, false
	}
	s.state.prependKnown(*chat)
	if s.state.epoch == epoch {
		s.state.ActiveID = chat.ID
	}
	s.changedLocked()
	return chat, true
}

// fail marks the user message unsent and shows the apology when target is
// still the active conversation.
func (s *Session) fail(kind intent.Kind, target, userMsgID string, epoch uint64) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.finishLocked()

	if target == "" {
		if s.state.epoch == epoch {
			markIn(s.state.Active, userMsgID)
		}
		return OutcomeAbandoned
	}
	s.state.markUnsent(target, userMsgID)
	if s.state.ActiveID != target {
		return OutcomeDiscarded
	}
	apology := model.NewMessage(model.RoleAssistant, model.TextApology)
	if kind == intent.Image {
		apology.Content = model.ImageApology
	}
	apology.Unsent = true
	s.state.Active = append(s.state.Active, apology)
	return OutcomeFailed
}

func (s *Session) finishLocked() {
	s.loading = false
	s.generatingImage = false
	s.changedLocked()
}

// Subscribe returns a channel that receives a snapshot after every change.
// Slow readers only see the latest snapshot. The func stops delivery and
// closes the channel.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubscriber
	s.nextSubscriber++
	ch := make(chan Snapshot, 1)
	s.subscribers[id] = ch
	ch <- s.snapshotLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subscribers, id)
			close(ch)
		})
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

// idleSince reports when the session was last used, or ok=false while it is
// busy or watched.
func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading || s.generatingImage || len(s.subscribers) > 0 {
		return time.Time{}, false
	}
	return s.lastUsed, true
}

func (s *Session) changedLocked() {
	s.version++
	s.lastUsed = time.Now()
	if len(s.subscribers) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, ch := range s.subscribers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s *Session) snapshotLocked() Snapshot {
	st := s.state.Clone()
	if st.Active == nil {
		st.Active = []model.Message{}
	}
	return Snapshot{
		ActiveChatID:      st.ActiveID,
		Messages:          st.Active,
		Chats:             st.Known,
		IsLoading:         s.loading,
		IsGeneratingImage: s.generatingImage,
		Version:           s.version,
	}
}
