package airdropgrpc

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/blockberries/airdrop"
	"github.com/blockberries/airdrop/server"
	"github.com/blockberries/airdrop/types"
)

// Compile-time interface check.
var _ airdrop.Connection = (*Client)(nil)

// Client implements airdrop.Connection for a remote application over
// gRPC. Lifecycle ordering is checked locally before each call goes
// on the wire.
type Client struct {
	cc    *grpc.ClientConn
	caps  types.Capabilities
	guard *server.LifecycleGuard
}

// Dial creates a client for the application at addr. The connection
// is established lazily on the first call.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append(opts, grpc.WithDefaultCallOptions(
		grpc.ForceCodec(CramberryCodec{}),
	))
	cc, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("airdrop client: dial %s: %w", addr, err)
	}
	return &Client{
		cc:    cc,
		guard: server.NewLifecycleGuard(),
	}, nil
}

func (c *Client) Close() error {
	return c.cc.Close()
}

// invoke runs a unary call and rebuilds a HaltError from the reply.
func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	var trailer metadata.MD
	err := c.cc.Invoke(ctx, fullMethod(method), req, resp, grpc.Trailer(&trailer))
	return fromStatus(err, trailer)
}

// --- Lifecycle ---

func (c *Client) Handshake(ctx context.Context, req types.HandshakeRequest) (types.HandshakeResponse, error) {
	if err := c.guard.AcquireHandshake(); err != nil {
		return types.HandshakeResponse{}, err
	}

	resp := new(types.HandshakeResponse)
	if err := c.invoke(ctx, "Handshake", &req, resp); err != nil {
		c.guard.FailHandshake()
		return types.HandshakeResponse{}, err
	}

	c.caps = resp.Capabilities
	c.guard.CompleteHandshake()
	return *resp, nil
}

func (c *Client) CheckTx(ctx context.Context, tx types.Tx, mctx types.MempoolContext) (types.GateVerdict, error) {
	if err := c.guard.CheckConcurrent("CheckTx"); err != nil {
		return types.GateVerdict{}, err
	}

	resp := new(types.GateVerdict)
	if err := c.invoke(ctx, "CheckTx", &CheckTxRequest{Tx: tx, Context: mctx}, resp); err != nil {
		return types.GateVerdict{}, err
	}
	return *resp, nil
}

func (c *Client) ExecuteBlock(ctx context.Context, block types.FinalizedBlock) (types.BlockOutcome, error) {
	if err := c.guard.AcquireExecute(); err != nil {
		return types.BlockOutcome{}, err
	}

	resp := new(types.BlockOutcome)
	if err := c.invoke(ctx, "ExecuteBlock", &block, resp); err != nil {
		c.guard.FailExecute()
		return types.BlockOutcome{}, err
	}

	c.guard.CompleteExecute()
	return *resp, nil
}

func (c *Client) Commit(ctx context.Context) (types.CommitResult, error) {
	if err := c.guard.AcquireCommit(); err != nil {
		return types.CommitResult{}, err
	}

	resp := new(types.CommitResult)
	err := c.invoke(ctx, "Commit", &CommitRequest{}, resp)
	c.guard.CompleteCommit()
	if err != nil {
		return types.CommitResult{}, err
	}
	return *resp, nil
}

func (c *Client) Query(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error) {
	if err := c.guard.CheckConcurrent("Query"); err != nil {
		return types.StateQueryResult{}, err
	}

	resp := new(types.StateQueryResult)
	if err := c.invoke(ctx, "Query", &req, resp); err != nil {
		return types.StateQueryResult{}, err
	}
	return *resp, nil
}

// --- Capability Accessors ---

func (c *Client) Capabilities() types.Capabilities { return c.caps }

func (c *Client) AsStateSync() airdrop.StateSync {
	if c.caps.Has(types.CapStateSync) {
		return &clientStateSync{c}
	}
	return nil
}

func (c *Client) AsSimulator() airdrop.Simulator {
	if c.caps.Has(types.CapSimulation) {
		return &clientSimulator{c}
	}
	return nil
}

// --- StateSync wrapper ---

type clientStateSync struct{ c *Client }

func (w *clientStateSync) AvailableSnapshots(ctx context.Context) ([]types.SnapshotDescriptor, error) {
	resp := new(AvailableSnapshotsResponse)
	if err := w.c.invoke(ctx, "AvailableSnapshots", &AvailableSnapshotsRequest{}, resp); err != nil {
		return nil, err
	}
	return resp.Snapshots, nil
}

// ExportSnapshot waits for the descriptor, then streams the chunks on
// the returned channel. The channel closes early if ctx is cancelled
// or the stream fails.
func (w *clientStateSync) ExportSnapshot(ctx context.Context, height uint64, format uint32) (<-chan types.SnapshotChunk, *types.SnapshotDescriptor, error) {
	stream, err := w.c.cc.NewStream(ctx, &grpc.StreamDesc{
		StreamName:    "ExportSnapshot",
		ServerStreams: true,
	}, fullMethod("ExportSnapshot"))
	if err != nil {
		return nil, nil, err
	}
	if err := stream.SendMsg(&ExportSnapshotRequest{Height: height, Format: format}); err != nil {
		return nil, nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, nil, err
	}

	first := new(SnapshotMessage)
	if err := stream.RecvMsg(first); err != nil {
		return nil, nil, err
	}
	if first.Descriptor == nil {
		return nil, nil, errors.New("airdrop client: export stream did not start with a descriptor")
	}

	ch := make(chan types.SnapshotChunk)
	go func() {
		defer close(ch)
		for {
			msg := new(SnapshotMessage)
			if err := stream.RecvMsg(msg); err != nil {
				return
			}
			if msg.Chunk == nil {
				continue
			}
			select {
			case ch <- *msg.Chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, first.Descriptor, nil
}

func (w *clientStateSync) ImportSnapshot(ctx context.Context, desc types.SnapshotDescriptor, chunks <-chan types.SnapshotChunk) (types.ImportResult, error) {
	stream, err := w.c.cc.NewStream(ctx, &grpc.StreamDesc{
		StreamName:    "ImportSnapshot",
		ClientStreams: true,
	}, fullMethod("ImportSnapshot"))
	if err != nil {
		return types.ImportResult{}, err
	}

	if err := stream.SendMsg(&SnapshotMessage{Descriptor: &desc}); err != nil {
		return types.ImportResult{}, err
	}
	for chunk := range chunks {
		if err := stream.SendMsg(&SnapshotMessage{Chunk: &chunk}); err != nil {
			// The real error comes back on RecvMsg.
			if errors.Is(err, io.EOF) {
				break
			}
			return types.ImportResult{}, err
		}
	}
	if err := stream.CloseSend(); err != nil {
		return types.ImportResult{}, err
	}

	result := new(types.ImportResult)
	if err := stream.RecvMsg(result); err != nil {
		return types.ImportResult{}, err
	}
	return *result, nil
}

// --- Simulator wrapper ---

type clientSimulator struct{ c *Client }

func (w *clientSimulator) Simulate(ctx context.Context, tx types.Tx) (types.TxOutcome, error) {
	resp := new(types.TxOutcome)
	if err := w.c.invoke(ctx, "Simulate", &SimulateRequest{Tx: tx}, resp); err != nil {
		return types.TxOutcome{}, err
	}
	return *resp, nil
}
