package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	app_errors "pictochat/backend/internal/errors"
	"pictochat/backend/internal/history"
	"pictochat/backend/internal/imagegen"
	"pictochat/backend/internal/intent"
	"pictochat/backend/internal/llm"
	"pictochat/backend/internal/metrics"
	"pictochat/backend/internal/model"
	"pictochat/backend/internal/repository"
)

// SendMessageRequest is the payload of the stateless send procedure.
// IsImageRequest overrides keyword classification when set.
type SendMessageRequest struct {
	Message        string          `json:"message" validate:"required,max=32000" example:"Please draw a cat"`
	ChatID         string          `json:"chat_id" validate:"required,max=64"`
	IsImageRequest *bool           `json:"is_image_request,omitempty"`
	History        []model.Message `json:"history" validate:"dive"`
}

// SendMessageResult is the turn produced by SendMessage. Response and
// ImageURL repeat the assistant reply in the flat shape older clients read.
// An unsent AssistantMessage is an apology that was not stored.
type SendMessageResult struct {
	Response         string        `json:"response"`
	ImageURL         string        `json:"imageUrl,omitempty"`
	UserMessage      model.Message `json:"user_message"`
	AssistantMessage model.Message `json:"assistant_message"`
}

// ChatOptions holds the fixed parameters of a ChatService.
type ChatOptions struct {
	PlaceholderBase string
	RemoteTimeout   time.Duration
}

// ChatService implements the server procedures: chat creation and listing,
// completions, image generation and turn persistence.
type ChatService struct {
	repo      repository.Repository
	completer llm.Completer
	images    imagegen.Generator
	settings  *SettingsService
	opts      ChatOptions
}

func NewChatService(repo repository.Repository, completer llm.Completer, images imagegen.Generator, settings *SettingsService, opts ChatOptions) *ChatService {
	if opts.PlaceholderBase == "" {
		opts.PlaceholderBase = imagegen.DefaultPlaceholderBase
	}
	return &ChatService{
		repo:      repo,
		completer: completer,
		images:    images,
		settings:  settings,
		opts:      opts,
	}
}

// CreateChat stores a new empty chat for the user.
func (s *ChatService) CreateChat(ctx context.Context, userID, title string) (*model.Chat, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title must not be empty", app_errors.ErrValidation)
	}
	chat, err := s.repo.CreateChat(ctx, userID, model.ChatTitle(title))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", app_errors.ErrUnavailable, err)
	}
	slog.Info("Created chat", "chat_id", chat.ID, "user_id", userID)
	return chat, nil
}

// ListChats returns the user's chats, newest first, each with its messages.
func (s *ChatService) ListChats(ctx context.Context, userID string) ([]model.Chat, error) {
	chats, err := s.repo.ListChats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", app_errors.ErrUnavailable, err)
	}
	return chats, nil
}

// GetChat returns a single chat if it belongs to the user.
func (s *ChatService) GetChat(ctx context.Context, userID, chatID string) (*model.Chat, error) {
	chat, err := s.repo.GetChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, app_errors.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", app_errors.ErrUnavailable, err)
	}
	if chat.UserID != userID {
		return nil, app_errors.ErrPermission
	}
	return chat, nil
}

// SaveTurn stores a user message and its reply as one unit.
func (s *ChatService) SaveTurn(ctx context.Context, chatID string, user, assistant model.Message) error {
	if err := s.repo.AddTurn(ctx, chatID, user, assistant); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return app_errors.ErrNotFound
		}
		if errors.Is(err, repository.ErrInvalidTurn) {
			return fmt.Errorf("%w: %v", app_errors.ErrValidation, err)
		}
		return fmt.Errorf("%w: %v", app_errors.ErrUnavailable, err)
	}
	return nil
}

// Complete asks the completion service for a reply to text given the prior
// conversation. Image messages in the history are not sent.
func (s *ChatService) Complete(ctx context.Context, prior []model.Message, text string) (string, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return "", err
	}

	ctx, cancel := s.withRemoteTimeout(ctx)
	defer cancel()

	start := time.Now()
	resp, err := s.completer.Complete(ctx, &llm.CompletionRequest{
		Model:    settings.TextModel,
		System:   settings.SystemPrompt,
		Messages: history.Project(prior, text),
	})
	metrics.RecordRemoteCall("completion", s.completer.Name(), err, time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("%w: %v", app_errors.ErrUnavailable, err)
	}
	return resp.Content, nil
}

// GenerateImage returns the URL of the first image generated for prompt.
func (s *ChatService) GenerateImage(ctx context.Context, prompt string) (string, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return "", err
	}

	ctx, cancel := s.withRemoteTimeout(ctx)
	defer cancel()

	start := time.Now()
	urls, err := s.images.Generate(ctx, imagegen.Request{
		Prompt: prompt,
		Size:   settings.ImageSize,
		Steps:  settings.ImageSteps,
		Count:  1,
	})
	metrics.RecordRemoteCall("image", s.images.Name(), err, time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("%w: %v", app_errors.ErrUnavailable, err)
	}
	if len(urls) == 0 || urls[0] == "" {
		return "", fmt.Errorf("%w: %v", app_errors.ErrUnavailable, imagegen.ErrNoImage)
	}
	return urls[0], nil
}

// Reply produces the assistant message for text. Image requests never fail
// because of the generator: its errors degrade to a placeholder image. They
// fail only when ctx itself is done. Text requests fail with the completion
// error.
func (s *ChatService) Reply(ctx context.Context, kind intent.Kind, prior []model.Message, text string) (model.Message, error) {
	if kind == intent.Image {
		url, err := s.GenerateImage(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return model.Message{}, ctx.Err()
			}
			slog.Warn("Image generation failed, using placeholder", "error", err)
			url = imagegen.Placeholder(s.opts.PlaceholderBase, text)
		}
		reply := model.NewMessage(model.RoleAssistant, model.ImageCaption(text))
		reply.ImageURL = url
		reply.IsImage = true
		return reply, nil
	}

	content, err := s.Complete(ctx, prior, text)
	if err != nil {
		return model.Message{}, err
	}
	return model.NewMessage(model.RoleAssistant, content), nil
}

// SendMessage is the stateless send procedure: it replies to req.Message in
// an existing chat and stores the turn before returning. A failed reply or
// save, or an unreachable store, is answered with an apology and nothing is
// stored. Only bad input, unknown or foreign chats and a done ctx are
// returned as errors.
func (s *ChatService) SendMessage(ctx context.Context, userID string, req SendMessageRequest) (*SendMessageResult, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, fmt.Errorf("%w: message must not be empty", app_errors.ErrValidation)
	}
	kind := intent.Classify(text)
	if req.IsImageRequest != nil {
		kind = intent.Text
		if *req.IsImageRequest {
			kind = intent.Image
		}
	}
	userMsg := model.NewMessage(model.RoleUser, text)

	_, err := s.GetChat(ctx, userID, req.ChatID)
	if err != nil && !errors.Is(err, app_errors.ErrUnavailable) {
		return nil, err
	}
	var reply model.Message
	if err == nil {
		reply, err = s.Reply(ctx, kind, req.History, text)
	}
	if err == nil {
		err = s.SaveTurn(ctx, req.ChatID, userMsg, reply)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Error("Send failed, answering with an apology", "chat_id", req.ChatID, "intent", kind, "error", err)
		userMsg.Unsent = true
		reply = apology(kind)
	}
	return &SendMessageResult{
		Response:         reply.Content,
		ImageURL:         reply.ImageURL,
		UserMessage:      userMsg,
		AssistantMessage: reply,
	}, nil
}

func apology(kind intent.Kind) model.Message {
	msg := model.NewMessage(model.RoleAssistant, model.TextApology)
	if kind == intent.Image {
		msg.Content = model.ImageApology
	}
	msg.Unsent = true
	return msg
}

func (s *ChatService) withRemoteTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.RemoteTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.RemoteTimeout)
}
