package service

import "errors"

// Error kinds shared by every backend. Backends wrap them with %w.
var (
	// ErrNetwork indicates the request did not complete.
	ErrNetwork = errors.New("network error")

	// ErrNotFound indicates the resource does not exist (HTTP 404).
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates a missing, expired or rejected token (HTTP 401/403).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation indicates input rejected before any request was sent.
	ErrValidation = errors.New("validation error")
)
