package kudos

import (
	"errors"
	"fmt"
)

// HaltError signals that the application found its own state
// unreadable and the host must stop instead of committing.
//
// When the host receives a HaltError from ExecuteBlock, it must not
// proceed to Commit.
type HaltError struct {
	Reason string
	Height uint64
	Err    error
}

func (e *HaltError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HALT at height %d: %s: %v", e.Height, e.Reason, e.Err)
	}
	return fmt.Sprintf("HALT at height %d: %s", e.Height, e.Reason)
}

func (e *HaltError) Unwrap() error { return e.Err }

// NewHaltError creates a new HaltError.
func NewHaltError(height uint64, reason string, cause error) *HaltError {
	return &HaltError{Height: height, Reason: reason, Err: cause}
}

// IsHalt checks whether an error is a HaltError and returns it.
func IsHalt(err error) (*HaltError, bool) {
	var h *HaltError
	if errors.As(err, &h) {
		return h, true
	}
	return nil, false
}
