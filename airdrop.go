// Package airdrop defines the boundary between a host ledger and the
// airdrop application: a faucet that mints a caller-chosen amount to
// an account at most once per block-height cooldown window.
//
// The core [Lifecycle] interface is required. [StateSync] and
// [Simulator] are optional capabilities discovered via Go type
// assertion at handshake time.
package airdrop

import (
	"context"

	"github.com/blockberries/airdrop/types"
)

// Lifecycle is the interface every application run by the host must
// implement.
//
// The host guarantees the following call order:
//  1. Handshake is called exactly once, before anything else.
//  2. ExecuteBlock(h) is called exactly once per committed height h.
//  3. Commit is called exactly once after each ExecuteBlock.
//  4. CheckTx, Query may be called concurrently at any time after Handshake.
type Lifecycle interface {
	// Handshake is called once on every startup.
	//
	// If LastCommitted is nil this is a fresh chain and Genesis is
	// populated. The application returns its own view of its state so
	// the host can detect divergence.
	Handshake(ctx context.Context, req types.HandshakeRequest) (types.HandshakeResponse, error)

	// CheckTx gate-checks a transaction against committed state before
	// the host admits it. It MUST be safe for concurrent use.
	CheckTx(ctx context.Context, tx types.Tx, mctx types.MempoolContext) (types.GateVerdict, error)

	// ExecuteBlock deterministically executes a finalized block. Every
	// transaction is executed in order and produces exactly one
	// TxOutcome. State changes are staged, not persisted.
	ExecuteBlock(ctx context.Context, block types.FinalizedBlock) (types.BlockOutcome, error)

	// Commit persists the changes staged by the last ExecuteBlock.
	// Either all of them land or none do.
	Commit(ctx context.Context) (types.CommitResult, error)

	// Query reads the last committed state. It MUST be safe for
	// concurrent use, including concurrently with ExecuteBlock.
	Query(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error)
}

// StateSync enables snapshot-based bootstrapping of a node.
//
// Declared via: types.CapStateSync in HandshakeResponse.Capabilities
type StateSync interface {
	// AvailableSnapshots lists snapshots the application can export.
	AvailableSnapshots(ctx context.Context) ([]types.SnapshotDescriptor, error)

	// ExportSnapshot exports a snapshot as a pull-based stream of chunks.
	// The channel is closed after the last chunk.
	ExportSnapshot(ctx context.Context, height uint64, format uint32) (<-chan types.SnapshotChunk, *types.SnapshotDescriptor, error)

	// ImportSnapshot rebuilds state from a stream of chunks and returns
	// the resulting AppHash.
	ImportSnapshot(ctx context.Context, descriptor types.SnapshotDescriptor, chunks <-chan types.SnapshotChunk) (types.ImportResult, error)
}

// Simulator dry-runs a transaction against committed state.
//
// Declared via: types.CapSimulation in HandshakeResponse.Capabilities
type Simulator interface {
	// Simulate executes tx as if it were included in the next block,
	// without persisting anything. It MUST be safe for concurrent use.
	Simulate(ctx context.Context, tx types.Tx) (types.TxOutcome, error)
}

// Application embeds every interface. The airdrop app implements it.
type Application interface {
	Lifecycle
	StateSync
	Simulator
}

// Connection is a transport-agnostic handle on an application. Both
// the gRPC client and the in-process adapter implement it.
type Connection interface {
	Lifecycle

	// Capabilities returns the capabilities discovered at handshake.
	Capabilities() types.Capabilities

	// AsStateSync returns the StateSync interface if available.
	AsStateSync() StateSync

	// AsSimulator returns the Simulator interface if available.
	AsSimulator() Simulator

	// Close terminates the connection.
	Close() error
}
