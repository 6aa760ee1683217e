package errors

import "errors"

// Sentinel errors shared by every layer. Services wrap them with context and the
// API layer maps them to HTTP status codes with errors.Is.

var (
	// ErrNotFound signifies that a requested chat or session could not be located.
	// Mapped to 404 Not Found.
	ErrNotFound = errors.New("resource not found")

	// ErrValidation signifies that client input failed validation.
	// Mapped to 400 Bad Request.
	ErrValidation = errors.New("validation failed")

	// ErrConflict signifies that the operation conflicts with the current state.
	// Mapped to 409 Conflict.
	ErrConflict = errors.New("resource conflict")

	// ErrPermission signifies that the caller does not own the resource.
	// Mapped to 403 Forbidden.
	ErrPermission = errors.New("permission denied")

	// ErrUnauthorized signifies that no valid identity accompanied the request.
	// Mapped to 401 Unauthorized.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnavailable signifies that a remote service (completion, image generation,
	// persistence) could not serve the request.
	// Mapped to 502 Bad Gateway.
	ErrUnavailable = errors.New("upstream service unavailable")

	// ErrInternal is the generic fallback that hides implementation details.
	// Mapped to 500 Internal Server Error.
	ErrInternal = errors.New("internal server error")
)
