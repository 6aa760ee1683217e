package repository

import "errors"

// ErrNotFound is returned when a query for a single chat finds no rows. The
// service layer translates it into the application-level not-found error.
var ErrNotFound = errors.New("repository: not found")

// ErrInvalidTurn is returned by AddTurn when the pair is not a user message
// followed by an assistant message.
var ErrInvalidTurn = errors.New("repository: turn must be a user message and an assistant reply")
