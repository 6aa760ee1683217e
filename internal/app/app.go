package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"pictochat/backend/internal/api"
	"pictochat/backend/internal/auth"
	"pictochat/backend/internal/config"
	"pictochat/backend/internal/database"
	"pictochat/backend/internal/events"
	"pictochat/backend/internal/imagegen"
	"pictochat/backend/internal/llm"
	"pictochat/backend/internal/logger"
	"pictochat/backend/internal/repository"
	"pictochat/backend/internal/service"
	"pictochat/backend/internal/session"
	"pictochat/backend/internal/tracing"
)

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 15 * time.Second
)

// App is the wired service: the HTTP server plus what must be drained or
// closed when it stops.
type App struct {
	Server   *http.Server
	Sessions *session.Manager
	Mirror   *session.Mirror

	closers []func() error
}

func Run() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		// slog is not yet configured, so use the default logger for this critical error.
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	flush := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	defer flush()

	logConfigSource()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.TracingEnabled, cfg.TracingEndpoint)
	if err != nil {
		slog.Error("Failed to set up tracing", "error", err)
		return 1
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			slog.Warn("Failed to flush traces", "error", err)
		}
	}()

	app, err := NewApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		return 1
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Error("Failed to release resources", "error", err)
		}
	}()

	go app.Sessions.Run(ctx, sweepInterval, cfg.SessionIdleTTL)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", cfg.AppPort)
		serverErr <- app.Server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			return 1
		}
	case <-ctx.Done():
		slog.Info("Shutting down server")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.Server.Shutdown(sctx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
			return 1
		}
	}

	return 0
}

// NewApp connects storage and remote services and builds the HTTP server.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set")
	}

	app := &App{}
	ok := false
	defer func() {
		if !ok {
			_ = app.Close()
		}
	}()

	repo, settingsRepo, err := app.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		app.closers = append(app.closers, rdb.Close)
		if err := waitFor(ctx, "redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() }); err != nil {
			return nil, err
		}
		repo = repository.NewCachedRepository(repo, rdb, cfg.ChatCacheTTL)
		slog.Info("Chat list cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.ChatCacheTTL)
	}

	completer, closeCompleter, err := llm.NewCompleter(ctx, llm.ProviderOptions{
		Provider:       cfg.LLMProvider,
		OpenAIKey:      cfg.OpenAIAPIKey,
		OpenAIBaseURL:  cfg.OpenAIBaseURL,
		OpenAIModel:    cfg.OpenAIModel,
		AnthropicKey:   cfg.AnthropicAPIKey,
		AnthropicURL:   cfg.AnthropicURL,
		AnthropicModel: cfg.AnthropicModel,
		GeminiKey:      cfg.GeminiAPIKey,
		GeminiModel:    cfg.GeminiModel,
		OllamaURL:      cfg.OllamaURL,
		OllamaModel:    cfg.OllamaModel,
	})
	if err != nil {
		return nil, fmt.Errorf("completion provider: %w", err)
	}
	app.closers = append(app.closers, closeCompleter)

	images, err := imagegen.NewGenerator(imagegen.ProviderOptions{
		Provider:      cfg.ImageProvider,
		FalURL:        cfg.FalURL,
		FalKey:        cfg.FalKey,
		OpenAIKey:     cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		Timeout:       cfg.RemoteTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("image provider: %w", err)
	}
	slog.Info("Remote services configured", "llm", completer.Name(), "images", images.Name())

	settingsService := service.NewSettingsService(settingsRepo)
	appSettings, err := settingsService.InitAndGet(ctx, service.Settings{
		SystemPrompt: cfg.SystemPrompt,
		ImageSize:    cfg.ImageSize,
		ImageSteps:   cfg.ImageSteps,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize settings: %w", err)
	}
	slog.Info("Loaded application settings", "text_model", appSettings.TextModel, "image_size", appSettings.ImageSize)

	chatService := service.NewChatService(repo, completer, images, settingsService, service.ChatOptions{
		PlaceholderBase: cfg.PlaceholderImageURL,
		RemoteTimeout:   cfg.RemoteTimeout,
	})

	publisher, err := newPublisher(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, publisher.Close)

	app.Mirror = session.NewMirror(chatService, publisher, cfg.PersistTimeout)
	app.Sessions = session.NewManager(chatService, app.Mirror)

	verifier := auth.NewVerifier(cfg.JWTSecret)
	router := api.NewRouter(
		api.NewChatHandler(chatService, settingsService),
		api.NewSessionHandler(app.Sessions, cfg.CORSAllowedOrigins),
		api.RouterOptions{
			AllowedOrigins:    cfg.CORSAllowedOrigins,
			RateLimitRequests: cfg.RateLimitRequests,
			RateLimitWindow:   cfg.RateLimitWindow,
			Authenticate:      verifier.Middleware,
		},
	)

	app.Server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		WriteTimeout:      0, // Disabled for the snapshot stream
		IdleTimeout:       120 * time.Second,
	}

	ok = true
	return app, nil
}

// Close waits for pending turn writes, then releases connections in reverse
// order of acquisition.
func (a *App) Close() error {
	if a.Mirror != nil {
		a.Mirror.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openStore(ctx context.Context, cfg *config.Config) (repository.Repository, repository.SettingsRepository, error) {
	switch strings.ToLower(cfg.DatabaseDriver) {
	case "", "sqlite":
		db, err := database.InitDB(cfg.DatabasePath)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize database: %w", err)
		}
		a.closers = append(a.closers, closeDB(db))
		slog.Info("Successfully connected to SQLite database.", "path", cfg.DatabasePath)
		repo := repository.NewSQLiteRepository(db)
		return repo, repo, nil

	case "bolt":
		db, err := database.OpenBolt(cfg.DatabasePath)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		slog.Info("Successfully opened bolt database.", "path", cfg.DatabasePath)
		repo := repository.NewBoltRepository(db)
		return repo, repo, nil

	case "postgres":
		var pool interface{ Close() }
		var repo *repository.PostgresRepository
		err := waitFor(ctx, "postgres", func(ctx context.Context) error {
			p, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			if err := database.EnsureSchema(ctx, p); err != nil {
				p.Close()
				return err
			}
			pool, repo = p, repository.NewPostgresRepository(p)
			return nil
		})
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		slog.Info("Successfully connected to Postgres database.")
		return repo, repo, nil

	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
	}
}

func closeDB(db *sql.DB) func() error {
	return func() error {
		if err := db.Close(); err != nil {
			return fmt.Errorf("close database: %w", err)
		}
		return nil
	}
}

func newPublisher(ctx context.Context, cfg *config.Config) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		return events.NewNopPublisher(), nil
	}
	publisher, err := events.NewNATSPublisher(ctx, cfg.NATSURL, cfg.NATSSubjectPrefix)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	slog.Info("Publishing turn events", "url", cfg.NATSURL, "prefix", cfg.NATSSubjectPrefix)
	return publisher, nil
}

var (
	waitAttempts = 10
	waitDelay    = 3 * time.Second
)

// waitFor retries check until it succeeds, the attempts run out or ctx is done.
// Containers started together are often not ready when the service starts.
func waitFor(ctx context.Context, name string, check func(context.Context) error) error {
	slog.Info("Waiting for dependency to be ready...", "dependency", name)
	var err error
	for attempt := 1; attempt <= waitAttempts; attempt++ {
		if err = check(ctx); err == nil {
			slog.Info("Dependency is ready.", "dependency", name)
			return nil
		}
		slog.Debug("Dependency not ready yet, retrying...", "dependency", name, "attempt", attempt, "error", err)
		if attempt == waitAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitDelay):
		}
	}
	return fmt.Errorf("%s not ready after %d attempts: %w", name, waitAttempts, err)
}

func logConfigSource() {
	if configFileUsed := viper.ConfigFileUsed(); configFileUsed != "" {
		slog.Info("Successfully loaded configuration from file.", "file", configFileUsed)
	} else {
		slog.Info("Configuration file not found. Using environment variables and defaults.")
	}
}
