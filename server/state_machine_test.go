package server

import (
	"testing"

	"github.com/blockberries/airdrop"
)

func mustNil(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func mustSequence(t *testing.T, err error, call string) {
	t.Helper()
	s, ok := airdrop.IsSequence(err)
	if !ok {
		t.Fatalf("expected SequenceError, got %v", err)
	}
	if s.Call != call {
		t.Errorf("expected call %s, got %s", call, s.Call)
	}
}

func TestLifecycleGuard_HappyPath(t *testing.T) {
	g := NewLifecycleGuard()

	mustNil(t, g.AcquireHandshake())
	g.CompleteHandshake()
	if !g.IsReady() {
		t.Fatal("expected Ready after handshake")
	}

	for i := 0; i < 2; i++ {
		mustNil(t, g.AcquireExecute())
		g.CompleteExecute()
		mustNil(t, g.AcquireCommit())
		g.CompleteCommit()
		if !g.IsReady() {
			t.Fatalf("expected Ready after cycle %d", i)
		}
	}
}

func TestLifecycleGuard_ConcurrentAfterHandshake(t *testing.T) {
	g := NewLifecycleGuard()
	mustNil(t, g.AcquireHandshake())
	g.CompleteHandshake()
	mustNil(t, g.CheckConcurrent("Query"))
}

func TestLifecycleGuard_ConcurrentBeforeHandshake(t *testing.T) {
	g := NewLifecycleGuard()
	mustSequence(t, g.CheckConcurrent("CheckTx"), "CheckTx")
}

func TestLifecycleGuard_DoubleHandshake(t *testing.T) {
	g := NewLifecycleGuard()
	mustNil(t, g.AcquireHandshake())
	g.CompleteHandshake()
	mustSequence(t, g.AcquireHandshake(), "Handshake")
	if !g.IsReady() {
		t.Fatal("rejected handshake must not change state")
	}
}

func TestLifecycleGuard_CommitWithoutExecute(t *testing.T) {
	g := NewLifecycleGuard()
	mustNil(t, g.AcquireHandshake())
	g.CompleteHandshake()

	err := g.AcquireCommit()
	mustSequence(t, err, "Commit")
	s, _ := airdrop.IsSequence(err)
	if s.State != "Ready" || s.Expected != "Executed" {
		t.Errorf("unexpected error detail: %v", s)
	}

	// The guard is still usable.
	mustNil(t, g.AcquireExecute())
	g.CompleteExecute()
}

func TestLifecycleGuard_ExecuteTwice(t *testing.T) {
	g := NewLifecycleGuard()
	mustNil(t, g.AcquireHandshake())
	g.CompleteHandshake()
	mustNil(t, g.AcquireExecute())
	g.CompleteExecute()

	mustSequence(t, g.AcquireExecute(), "ExecuteBlock")
	if g.State() != "Executed" {
		t.Errorf("expected Executed, got %s", g.State())
	}
}

func TestLifecycleGuard_FailExecute(t *testing.T) {
	g := NewLifecycleGuard()
	mustNil(t, g.AcquireHandshake())
	g.CompleteHandshake()

	mustNil(t, g.AcquireExecute())
	g.FailExecute()
	if !g.IsReady() {
		t.Fatal("expected Ready after failed execute")
	}

	mustNil(t, g.AcquireExecute())
	g.CompleteExecute()
	mustNil(t, g.AcquireCommit())
	g.CompleteCommit()
}

func TestLifecycleGuard_FailHandshake(t *testing.T) {
	g := NewLifecycleGuard()
	mustNil(t, g.AcquireHandshake())
	g.FailHandshake()

	mustNil(t, g.AcquireHandshake())
	g.CompleteHandshake()
	if !g.IsReady() {
		t.Fatal("expected Ready after successful retry")
	}
}

func TestLifecycleGuard_State(t *testing.T) {
	g := NewLifecycleGuard()
	if g.State() != "Init" {
		t.Errorf("expected Init, got %s", g.State())
	}
	mustNil(t, g.AcquireHandshake())
	g.CompleteHandshake()
	if g.State() != "Ready" {
		t.Errorf("expected Ready, got %s", g.State())
	}
}
