package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a state update targets a session
	// that was never created. Not retryable without creating the session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrValidation marks caller errors on inbound turns (missing fields).
	ErrValidation = errors.New("validation failed")

	// ErrInference marks a failed generation call. Fatal to the turn.
	ErrInference = errors.New("inference failed")

	// ErrPersistence marks store-layer failures. Safe to retry: session
	// writes are idempotent merges, message writes append-only inserts.
	ErrPersistence = errors.New("persistence failed")

	// ErrBus marks envelope send failures. The triggering turn still
	// completes; only the background collaboration is lost.
	ErrBus = errors.New("bus send failed")
)
