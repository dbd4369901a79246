// Package exitcode defines exit codes for the CLI and maps errors onto them.
package exitcode

import (
	"errors"

	"heartwork/internal/service"
)

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, empty text, unknown task).
	UserError = 1

	// AuthError indicates a missing or rejected login.
	AuthError = 2

	// BackendError indicates a backend/API/network error.
	BackendError = 3
)

// For returns the exit code matching the kind of err.
func For(err error) int {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, service.ErrUnauthorized):
		return AuthError
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrNotFound):
		return UserError
	default:
		return BackendError
	}
}
