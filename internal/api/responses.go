package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	app_errors "pictochat/backend/internal/errors"
	"pictochat/backend/internal/session"
)

// Request and response DTOs of the HTTP API, plus the shared helpers that
// write JSON responses.

// ErrorResponse defines the standard JSON structure for error messages.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is returned by endpoints with nothing else to report.
type StatusResponse struct {
	Status string `json:"status"`
}

// CreateChatRequest is the body of POST /chats.
type CreateChatRequest struct {
	Title string `json:"title" validate:"required,max=32000" example:"Please draw a cat"`
}

// SubmitRequest is the body of POST /session/messages. Blank content is
// accepted and reported as an ignored submit.
type SubmitRequest struct {
	Content string `json:"content" validate:"max=32000" example:"What is the capital of France?"`
}

// SelectRequest is the body of POST /session/select.
type SelectRequest struct {
	ChatID string `json:"chat_id" validate:"required,max=64"`
}

// SubmitResponse reports what a submit did and the state it left behind.
type SubmitResponse struct {
	Outcome session.Outcome  `json:"outcome" example:"completed"`
	State   session.Snapshot `json:"state"`
}

// respondWithError maps business-layer errors to HTTP status codes and writes
// a JSON error body. Details of unexpected errors are logged, not returned.
func respondWithError(w http.ResponseWriter, err error) {
	var statusCode int
	var message string

	switch {
	case errors.Is(err, app_errors.ErrNotFound):
		statusCode = http.StatusNotFound
		message = "The requested resource was not found."
	case errors.Is(err, app_errors.ErrValidation):
		statusCode = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, app_errors.ErrConflict):
		statusCode = http.StatusConflict
		message = "A conflict occurred with the current state of the resource."
	case errors.Is(err, app_errors.ErrPermission):
		statusCode = http.StatusForbidden
		message = "You do not have permission to perform this action."
	case errors.Is(err, app_errors.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		message = "Authentication required."
	case errors.Is(err, app_errors.ErrUnavailable):
		statusCode = http.StatusBadGateway
		message = "An upstream service is unavailable. Please try again."
	default:
		statusCode = http.StatusInternalServerError
		message = "An unexpected internal server error occurred."
	}

	slog.Warn("Responding with error", "status_code", statusCode, "client_message", message, "internal_error", err)

	respondWithJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondWithJSON marshals payload and writes it with the given status code.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

// decodeJSON reads a JSON body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request payload", app_errors.ErrValidation)
	}
	return validateRequest(dst)
}

const maxBodyBytes = 1 << 20
