package airdrop

import (
	"errors"
	"fmt"
	"testing"
)

func TestHaltError(t *testing.T) {
	err := NewHaltError(42, "app hash mismatch", nil)
	if err.Height != 42 {
		t.Errorf("expected height 42, got %d", err.Height)
	}

	expected := "HALT at height 42: app hash mismatch"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}

func TestHaltError_Cause(t *testing.T) {
	cause := errors.New("disk full")
	err := NewHaltError(7, "persist state", cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected HaltError to unwrap to its cause")
	}
	expected := "HALT at height 7: persist state: disk full"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}

func TestIsHalt(t *testing.T) {
	haltErr := NewHaltError(10, "divergence", nil)

	h, ok := IsHalt(haltErr)
	if !ok {
		t.Fatal("expected IsHalt to return true")
	}
	if h.Height != 10 {
		t.Errorf("expected height 10, got %d", h.Height)
	}

	wrapped := fmt.Errorf("commit: %w", haltErr)
	h2, ok2 := IsHalt(wrapped)
	if !ok2 {
		t.Fatal("expected IsHalt to unwrap wrapped error")
	}
	if h2.Height != 10 {
		t.Errorf("expected height 10, got %d", h2.Height)
	}

	if _, ok := IsHalt(fmt.Errorf("just a regular error")); ok {
		t.Fatal("expected IsHalt to return false for non-halt error")
	}
	if _, ok := IsHalt(nil); ok {
		t.Fatal("expected IsHalt to return false for nil")
	}
}

func TestSequenceError(t *testing.T) {
	err := error(&SequenceError{Call: "Commit", State: "Ready", Expected: "Executed"})
	expected := "Commit called in state Ready (expected Executed)"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}

	s, ok := IsSequence(fmt.Errorf("server: %w", err))
	if !ok {
		t.Fatal("expected IsSequence to unwrap wrapped error")
	}
	if s.Call != "Commit" {
		t.Errorf("expected call Commit, got %s", s.Call)
	}
	if _, ok := IsSequence(NewHaltError(1, "x", nil)); ok {
		t.Fatal("expected IsSequence to return false for HaltError")
	}

	bare := &SequenceError{Call: "Query", State: "Init"}
	if bare.Error() != "Query called in state Init" {
		t.Errorf("unexpected message %q", bare.Error())
	}
}
