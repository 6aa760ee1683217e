package api

import (
	"net/http"
	"time"

	// This blank import is required by swaggo to find the API definitions.
	_ "pictochat/backend/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterOptions are the cross-cutting settings of the HTTP surface.
type RouterOptions struct {
	AllowedOrigins    []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	// Authenticate guards every /api/v1 route.
	Authenticate func(http.Handler) http.Handler
}

// NewRouter creates and configures a new chi router with all the application's routes.
func NewRouter(chatHandler *ChatHandler, sessionHandler *SessionHandler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// --- Global Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", TabHeader},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Public Routes ---
	r.Get("/api/swagger/*", httpSwagger.WrapHandler)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
	})

	// --- API Version 1 Routes ---
	r.Route("/api/v1", func(r chi.Router) {
		if opts.Authenticate != nil {
			r.Use(opts.Authenticate)
		}
		if opts.RateLimitRequests > 0 {
			r.Use(userRateLimit(opts.RateLimitRequests, opts.RateLimitWindow))
		}

		// The snapshot stream holds its connection open, so it sits outside
		// the timeout group.
		r.Get("/session/ws", sessionHandler.Stream)

		r.Group(func(r chi.Router) {
			// Long enough for a completion or image call plus storage.
			r.Use(middleware.Timeout(3 * time.Minute))

			r.Get("/me", chatHandler.GetMe)

			// --- Session ---
			r.Get("/session", sessionHandler.GetSession)
			r.Post("/session/messages", sessionHandler.Submit)
			r.Post("/session/new", sessionHandler.StartNew)
			r.Post("/session/select", sessionHandler.Select)
			r.Post("/session/refresh", sessionHandler.Refresh)

			// --- Chats ---
			r.Post("/chats", chatHandler.CreateChat)
			r.Get("/chats", chatHandler.GetChats)
			r.Get("/chats/{chatID}", chatHandler.GetChat)
			r.Post("/chats/messages", chatHandler.SendMessage)

			// --- Settings ---
			r.Get("/settings", chatHandler.GetSettings)
			r.Put("/settings", chatHandler.UpdateSettings)
		})
	})

	return r
}
