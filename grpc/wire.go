package airdropgrpc

import "github.com/blockberries/airdrop/types"

// Wrapper types for RPCs whose Go signatures don't map onto a single
// request or response struct.

// CheckTxRequest wraps the parameters of CheckTx.
type CheckTxRequest struct {
	Tx      types.Tx             `cramberry:"1"`
	Context types.MempoolContext `cramberry:"2"`
}

// CommitRequest is the (empty) request for Commit.
type CommitRequest struct{}

// AvailableSnapshotsRequest is the (empty) request for AvailableSnapshots.
type AvailableSnapshotsRequest struct{}

// AvailableSnapshotsResponse wraps the return value of AvailableSnapshots.
type AvailableSnapshotsResponse struct {
	Snapshots []types.SnapshotDescriptor `cramberry:"1"`
}

// ExportSnapshotRequest wraps the parameters of ExportSnapshot.
type ExportSnapshotRequest struct {
	Height uint64 `cramberry:"1"`
	Format uint32 `cramberry:"2"`
}

// SnapshotMessage carries either a descriptor (first message) or a
// chunk (every later message) on the ExportSnapshot and
// ImportSnapshot streams.
type SnapshotMessage struct {
	Descriptor *types.SnapshotDescriptor `cramberry:"1"`
	Chunk      *types.SnapshotChunk      `cramberry:"2"`
}

// SimulateRequest wraps the parameter of Simulate.
type SimulateRequest struct {
	Tx types.Tx `cramberry:"1"`
}
