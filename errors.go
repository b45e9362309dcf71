package airdrop

import (
	"errors"
	"fmt"
)

// HaltError signals that the application detected an irrecoverable
// inconsistency, such as a failed durable commit or an app hash that
// disagrees with the host on restart.
//
// When the host receives a HaltError it must stop feeding blocks and
// must not retry the failed call.
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

// SequenceError reports a lifecycle call made out of order, such as
// Commit without a preceding ExecuteBlock. The call has no effect.
type SequenceError struct {
	Call     string
	State    string
	Expected string
}

func (e *SequenceError) Error() string {
	if e.Expected == "" {
		return fmt.Sprintf("%s called in state %s", e.Call, e.State)
	}
	return fmt.Sprintf("%s called in state %s (expected %s)", e.Call, e.State, e.Expected)
}

// IsSequence checks whether an error is a SequenceError and returns it.
func IsSequence(err error) (*SequenceError, bool) {
	var s *SequenceError
	if errors.As(err, &s) {
		return s, true
	}
	return nil, false
}
