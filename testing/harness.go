// Package airdroptest provides test utilities for the airdrop
// application and its hosts: a lifecycle harness, deterministic
// signers, a configurable mock application and a lifecycle
// compliance suite.
package airdroptest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/blockberries/airdrop"
	"github.com/blockberries/airdrop/server"
	"github.com/blockberries/airdrop/state"
	"github.com/blockberries/airdrop/types"
)

// ChainID is the chain id used by DefaultGenesis and Signer.
const ChainID = "test-chain"

// Harness drives an application through a Connection and fails the
// test on any transport-level error.
type Harness struct {
	t    *testing.T
	conn airdrop.Connection
}

// NewHarness creates a test harness for app. A bare application is
// wrapped in a lifecycle server; a Connection (in-process or remote)
// is driven as is.
func NewHarness(t *testing.T, app airdrop.Lifecycle) *Harness {
	t.Helper()
	conn, ok := app.(airdrop.Connection)
	if !ok {
		conn = server.New(app)
	}
	return &Harness{t: t, conn: conn}
}

// Conn returns the connection the harness drives.
func (h *Harness) Conn() airdrop.Connection {
	return h.conn
}

// Genesis performs a genesis handshake with the given document.
func (h *Harness) Genesis(genesis types.GenesisDoc) types.HandshakeResponse {
	h.t.Helper()
	resp, err := h.conn.Handshake(context.Background(), types.HandshakeRequest{
		Genesis: &genesis,
	})
	if err != nil {
		h.t.Fatalf("Handshake (genesis) failed: %v", err)
	}
	return resp
}

// GenesisDefault performs a genesis handshake with DefaultGenesis.
func (h *Harness) GenesisDefault() types.HandshakeResponse {
	h.t.Helper()
	return h.Genesis(DefaultGenesis())
}

// Restart performs a restart handshake at the given block.
func (h *Harness) Restart(block types.BlockID) types.HandshakeResponse {
	h.t.Helper()
	resp, err := h.conn.Handshake(context.Background(), types.HandshakeRequest{
		LastCommitted: &block,
	})
	if err != nil {
		h.t.Fatalf("Handshake (restart) failed: %v", err)
	}
	return resp
}

// ExecuteBlock executes a block without committing.
func (h *Harness) ExecuteBlock(block types.FinalizedBlock) types.BlockOutcome {
	h.t.Helper()
	outcome, err := h.conn.ExecuteBlock(context.Background(), block)
	if err != nil {
		h.t.Fatalf("ExecuteBlock (height=%d) failed: %v", block.Height, err)
	}
	return outcome
}

// Commit commits the last executed block.
func (h *Harness) Commit() types.CommitResult {
	h.t.Helper()
	result, err := h.conn.Commit(context.Background())
	if err != nil {
		h.t.Fatalf("Commit failed: %v", err)
	}
	return result
}

// ExecuteAndCommit executes a block, commits it and returns the
// block outcome.
func (h *Harness) ExecuteAndCommit(block types.FinalizedBlock) types.BlockOutcome {
	h.t.Helper()
	outcome := h.ExecuteBlock(block)
	h.Commit()
	return outcome
}

// CheckTx submits a transaction for admission.
func (h *Harness) CheckTx(tx types.Tx) types.GateVerdict {
	h.t.Helper()
	verdict, err := h.conn.CheckTx(context.Background(), tx, types.MempoolFirstSeen)
	if err != nil {
		h.t.Fatalf("CheckTx failed: %v", err)
	}
	return verdict
}

// RecheckTx re-validates a previously admitted transaction.
func (h *Harness) RecheckTx(tx types.Tx) types.GateVerdict {
	h.t.Helper()
	verdict, err := h.conn.CheckTx(context.Background(), tx, types.MempoolRevalidation)
	if err != nil {
		h.t.Fatalf("RecheckTx failed: %v", err)
	}
	return verdict
}

// Simulate dry-runs tx against committed state.
func (h *Harness) Simulate(tx types.Tx) types.TxOutcome {
	h.t.Helper()
	sim := h.conn.AsSimulator()
	if sim == nil {
		h.t.Fatal("Simulate: simulation not available")
	}
	outcome, err := sim.Simulate(context.Background(), tx)
	if err != nil {
		h.t.Fatalf("Simulate failed: %v", err)
	}
	return outcome
}

// Query reads committed state.
func (h *Harness) Query(path types.QueryPath, data []byte) types.StateQueryResult {
	h.t.Helper()
	result, err := h.conn.Query(context.Background(), types.StateQuery{
		Path: path,
		Data: data,
	})
	if err != nil {
		h.t.Fatalf("Query failed: %v", err)
	}
	return result
}

// MustAcceptTx asserts that a transaction is admitted.
func (h *Harness) MustAcceptTx(tx types.Tx) {
	h.t.Helper()
	v := h.CheckTx(tx)
	if !v.Accepted() {
		h.t.Fatalf("expected tx accepted, got code=%d info=%q", v.Code, v.Info)
	}
}

// MustRejectTx asserts that a transaction is refused with code.
func (h *Harness) MustRejectTx(tx types.Tx, code uint32) {
	h.t.Helper()
	v := h.CheckTx(tx)
	if v.Accepted() {
		h.t.Fatal("expected tx rejected, got accepted")
	}
	if v.Code != code {
		h.t.Fatalf("expected rejection code %d, got %d (%s)", code, v.Code, v.Info)
	}
}

// --- Helper Factories ---

// DefaultGenesis returns a genesis document with default parameters
// and no endowed accounts.
func DefaultGenesis() types.GenesisDoc {
	return types.GenesisDoc{
		ChainID:     ChainID,
		GenesisTime: types.TimeToTimestamp(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
}

// GenesisWith returns a genesis document with params and one
// endowment per signer.
func GenesisWith(t *testing.T, params state.Params, balance types.Balance, signers ...*Signer) types.GenesisDoc {
	t.Helper()
	g := state.Genesis{Params: params}
	for _, s := range signers {
		g.Accounts = append(g.Accounts, state.GenesisAccount{Address: s.Account().String(), Balance: balance})
	}
	raw, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("marshal genesis: %v", err)
	}
	doc := DefaultGenesis()
	doc.AppState = raw
	return doc
}

// MakeBlock creates a FinalizedBlock at height with txs.
func MakeBlock(height uint64, txs ...types.Tx) types.FinalizedBlock {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(height) * 5 * time.Second)
	return types.FinalizedBlock{
		Height: height,
		Time:   types.TimeToTimestamp(t),
		Txs:    txs,
	}
}

// MakeEmptyBlock creates an empty FinalizedBlock at height.
func MakeEmptyBlock(height uint64) types.FinalizedBlock {
	return MakeBlock(height)
}
