package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"pictochat/backend/internal/auth"
	"pictochat/backend/internal/metrics"
	"pictochat/backend/internal/session"
)

// TabHeader carries the browser tab a request belongs to.
const TabHeader = "X-Tab-ID"

// requestLogger logs every request once it has completed and records the
// request metrics under the matched route pattern.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		duration := time.Since(start)

		userID := ""
		if identity, ok := auth.FromContext(r.Context()); ok {
			userID = identity.Subject
		}
		slog.Info("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", duration,
			"request_id", middleware.GetReqID(r.Context()),
			"user_id", userID,
		)
		metrics.RecordRequest(r.Method, route, strconv.Itoa(status), duration.Seconds())
	})
}

// userRateLimit limits each authenticated user to requests per window.
// Unauthenticated requests fall back to the client address.
func userRateLimit(requests int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if identity, ok := auth.FromContext(r.Context()); ok {
				return "user:" + identity.Subject, nil
			}
			return "ip:" + r.RemoteAddr, nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			respondWithJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded"})
		}),
	)
}

// tabID returns the tab a request belongs to.
func tabID(r *http.Request) string {
	if id := r.Header.Get(TabHeader); id != "" {
		return id
	}
	if id := r.URL.Query().Get("tab"); id != "" {
		return id
	}
	return session.DefaultTab
}
