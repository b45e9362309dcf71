// Package server wraps an airdrop application with the host-side
// lifecycle state machine and routes capability-gated calls.
package server

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/blockberries/airdrop"
)

// lifecycleState is a state of the host lifecycle.
type lifecycleState uint32

const (
	// stateInit: waiting for Handshake. Nothing else is allowed.
	stateInit lifecycleState = iota
	// stateReady: waiting for the next finalized block. CheckTx,
	// Query and Simulate may run concurrently.
	stateReady
	// stateExecuting: ExecuteBlock is running.
	stateExecuting
	// stateExecuted: ExecuteBlock returned; only Commit may follow.
	stateExecuted
	// stateCommitting: Commit is running.
	stateCommitting
)

func (s lifecycleState) String() string {
	switch s {
	case stateInit:
		return "Init"
	case stateReady:
		return "Ready"
	case stateExecuting:
		return "Executing"
	case stateExecuted:
		return "Executed"
	case stateCommitting:
		return "Committing"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// LifecycleGuard enforces the call order. Out-of-order calls return
// an *airdrop.SequenceError and leave the state untouched.
type LifecycleGuard struct {
	state atomic.Uint32
	// Serializes ExecuteBlock and Commit.
	seqMu         sync.Mutex
	handshakeDone atomic.Bool
}

// NewLifecycleGuard creates a guard in the Init state.
func NewLifecycleGuard() *LifecycleGuard {
	g := &LifecycleGuard{}
	g.state.Store(uint32(stateInit))
	return g
}

// State returns the current lifecycle state.
func (g *LifecycleGuard) State() string {
	return g.current().String()
}

func (g *LifecycleGuard) current() lifecycleState {
	return lifecycleState(g.state.Load())
}

// AcquireHandshake transitions Init → Ready.
func (g *LifecycleGuard) AcquireHandshake() error {
	if !g.state.CompareAndSwap(uint32(stateInit), uint32(stateReady)) {
		return &airdrop.SequenceError{Call: "Handshake", State: g.State(), Expected: stateInit.String()}
	}
	return nil
}

// CompleteHandshake enables concurrent calls.
func (g *LifecycleGuard) CompleteHandshake() {
	g.handshakeDone.Store(true)
}

// FailHandshake rolls back to Init so Handshake can be retried.
func (g *LifecycleGuard) FailHandshake() {
	g.state.Store(uint32(stateInit))
}

// AcquireExecute transitions Ready → Executing, blocking while
// another sequential call runs.
func (g *LifecycleGuard) AcquireExecute() error {
	g.seqMu.Lock()
	if s := g.current(); s != stateReady {
		g.seqMu.Unlock()
		return &airdrop.SequenceError{Call: "ExecuteBlock", State: s.String(), Expected: stateReady.String()}
	}
	g.state.Store(uint32(stateExecuting))
	return nil
}

// CompleteExecute transitions Executing → Executed.
func (g *LifecycleGuard) CompleteExecute() {
	g.state.Store(uint32(stateExecuted))
	g.seqMu.Unlock()
}

// FailExecute transitions Executing → Ready so the block can be
// retried.
func (g *LifecycleGuard) FailExecute() {
	g.state.Store(uint32(stateReady))
	g.seqMu.Unlock()
}

// AcquireCommit transitions Executed → Committing.
func (g *LifecycleGuard) AcquireCommit() error {
	g.seqMu.Lock()
	if s := g.current(); s != stateExecuted {
		g.seqMu.Unlock()
		return &airdrop.SequenceError{Call: "Commit", State: s.String(), Expected: stateExecuted.String()}
	}
	g.state.Store(uint32(stateCommitting))
	return nil
}

// CompleteCommit transitions Committing → Ready.
func (g *LifecycleGuard) CompleteCommit() {
	g.state.Store(uint32(stateReady))
	g.seqMu.Unlock()
}

// CheckConcurrent reports whether calls that may run alongside block
// execution are allowed yet.
func (g *LifecycleGuard) CheckConcurrent(call string) error {
	if !g.handshakeDone.Load() {
		return &airdrop.SequenceError{Call: call, State: g.State()}
	}
	return nil
}

// IsReady returns true if the guard is in the Ready state.
func (g *LifecycleGuard) IsReady() bool {
	return g.current() == stateReady
}
