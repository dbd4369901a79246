package commands

import (
	"errors"
	"fmt"
	"io"

	"heartwork/internal/exitcode"
	"heartwork/internal/todo"
)

// report prints err and returns the exit code for its kind.
func report(errOut io.Writer, err error) int {
	code := exitcode.For(err)
	if errors.Is(err, todo.ErrDefaultTask) || errors.Is(err, todo.ErrUnknownTask) {
		code = exitcode.UserError
	}

	switch code {
	case exitcode.AuthError:
		fmt.Fprintf(errOut, "error: auth error: %v\n", err)
	case exitcode.UserError:
		fmt.Fprintf(errOut, "error: %v\n", err)
	default:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	}
	return code
}
