package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy for registry operations. Callers classify with
// errors.Is; anything outside these categories is wrapped in OSError.
var (
	// ErrNotFound means the target PID no longer exists.
	ErrNotFound = errors.New("process not found")

	// ErrInvalidInput means a caller-supplied value failed validation
	// before any OS call was attempted.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPermissionDenied means the caller lacks privilege over the
	// target process.
	ErrPermissionDenied = errors.New("permission denied")
)

// OSError wraps a syscall failure that is neither a missing process
// nor a permission problem. The underlying error is preserved for
// errors.Is/As inspection.
type OSError struct {
	Op  string
	PID int32
	Err error
}

func (e *OSError) Error() string {
	return fmt.Sprintf("%s pid %d: %v", e.Op, e.PID, e.Err)
}

func (e *OSError) Unwrap() error {
	return e.Err
}
