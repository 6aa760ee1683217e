package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"pictochat/backend/internal/repository"
)

const (
	keySystemPrompt = "system_prompt"
	keyTextModel    = "text_model"
	keyImageSize    = "image_size"
	keyImageSteps   = "image_steps"
)

// Settings are the runtime-tunable parameters of completions and image
// generation. An empty TextModel means the provider default.
type Settings struct {
	SystemPrompt string `json:"system_prompt" validate:"required,max=8000"`
	TextModel    string `json:"text_model" validate:"max=100"`
	ImageSize    string `json:"image_size" validate:"required,oneof=square_hd square portrait_4_3 portrait_16_9 landscape_4_3 landscape_16_9"`
	ImageSteps   int    `json:"image_steps" validate:"required,min=1,max=50"`
}

func (s Settings) toMap() map[string]string {
	return map[string]string{
		keySystemPrompt: s.SystemPrompt,
		keyTextModel:    s.TextModel,
		keyImageSize:    s.ImageSize,
		keyImageSteps:   strconv.Itoa(s.ImageSteps),
	}
}

// SettingsService keeps the current settings in memory and writes every
// change through to the settings table.
type SettingsService struct {
	repo repository.SettingsRepository

	mu      sync.RWMutex
	current *Settings
}

func NewSettingsService(repo repository.SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

// InitAndGet loads stored settings and fills every missing key from defaults.
// Keys that were missing are written back so the next start sees them.
func (s *SettingsService) InitAndGet(ctx context.Context, defaults Settings) (*Settings, error) {
	stored, err := s.repo.LoadSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	merged := defaults
	missing := false
	if v, ok := stored[keySystemPrompt]; ok && v != "" {
		merged.SystemPrompt = v
	} else {
		missing = true
	}
	if v, ok := stored[keyTextModel]; ok {
		merged.TextModel = v
	} else {
		missing = true
	}
	if v, ok := stored[keyImageSize]; ok && v != "" {
		merged.ImageSize = v
	} else {
		missing = true
	}
	if n, err := strconv.Atoi(stored[keyImageSteps]); err == nil && n > 0 {
		merged.ImageSteps = n
	} else {
		missing = true
	}

	if missing {
		slog.Info("Initializing missing settings with defaults.")
		if err := s.repo.SaveSettings(ctx, merged.toMap()); err != nil {
			return nil, fmt.Errorf("failed to save initial settings: %w", err)
		}
	}

	s.mu.Lock()
	s.current = &merged
	s.mu.Unlock()

	out := merged
	return &out, nil
}

// Get returns a copy of the current settings.
func (s *SettingsService) Get(ctx context.Context) (*Settings, error) {
	s.mu.RLock()
	current := s.current
	s.mu.RUnlock()
	if current == nil {
		return nil, fmt.Errorf("settings are not initialized")
	}
	out := *current
	return &out, nil
}

// Save persists settings and makes them current. Input is expected to be
// validated by the caller.
func (s *SettingsService) Save(ctx context.Context, settings *Settings) error {
	if err := s.repo.SaveSettings(ctx, settings.toMap()); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	updated := *settings
	s.mu.Lock()
	s.current = &updated
	s.mu.Unlock()
	slog.Info("Settings updated.", "text_model", updated.TextModel, "image_size", updated.ImageSize)
	return nil
}
