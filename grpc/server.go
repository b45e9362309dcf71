package airdropgrpc

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/blockberries/airdrop"
	"github.com/blockberries/airdrop/logging"
	"github.com/blockberries/airdrop/server"
	"github.com/blockberries/airdrop/types"
)

func logger() *zap.SugaredLogger { return logging.Named("grpc") }

// Compile-time interface check.
var _ LedgerServer = (*GRPCServer)(nil)

// GRPCServer exposes an application as the Ledger gRPC service.
// Domain types go on the wire as they are, through cramberry.
type GRPCServer struct {
	srv *server.Server
}

// NewGRPCServer creates a gRPC server wrapping app.
func NewGRPCServer(app airdrop.Lifecycle) *GRPCServer {
	return &GRPCServer{srv: server.New(app)}
}

// Register adds the Ledger service to gs.
func (s *GRPCServer) Register(gs grpc.ServiceRegistrar) {
	RegisterLedgerServer(gs, s)
}

// NewServer builds a grpc.Server with call logging and the Ledger
// service registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(logUnary)}, opts...)
	gs := grpc.NewServer(opts...)
	s.Register(gs)
	return gs
}

// Serve serves the Ledger service on lis until the listener fails.
func (s *GRPCServer) Serve(lis net.Listener, opts ...grpc.ServerOption) error {
	return s.NewServer(opts...).Serve(lis)
}

// Server returns the underlying server.
func (s *GRPCServer) Server() *server.Server {
	return s.srv
}

func logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		logger().Warnw("rpc failed", "method", info.FullMethod, "code", status.Code(err).String(), "err", err)
	} else {
		logger().Debugw("rpc", "method", info.FullMethod, "took", time.Since(start))
	}
	return resp, err
}

// --- Lifecycle RPCs ---

func (s *GRPCServer) Handshake(ctx context.Context, req *types.HandshakeRequest) (*types.HandshakeResponse, error) {
	resp, err := s.srv.Handshake(ctx, *req)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &resp, nil
}

func (s *GRPCServer) CheckTx(ctx context.Context, req *CheckTxRequest) (*types.GateVerdict, error) {
	verdict, err := s.srv.CheckTx(ctx, req.Tx, req.Context)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &verdict, nil
}

func (s *GRPCServer) ExecuteBlock(ctx context.Context, block *types.FinalizedBlock) (*types.BlockOutcome, error) {
	outcome, err := s.srv.ExecuteBlock(ctx, *block)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &outcome, nil
}

func (s *GRPCServer) Commit(ctx context.Context, _ *CommitRequest) (*types.CommitResult, error) {
	result, err := s.srv.Commit(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &result, nil
}

func (s *GRPCServer) Query(ctx context.Context, req *types.StateQuery) (*types.StateQueryResult, error) {
	result, err := s.srv.Query(ctx, *req)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &result, nil
}

// --- StateSync RPCs ---

func (s *GRPCServer) AvailableSnapshots(ctx context.Context, _ *AvailableSnapshotsRequest) (*AvailableSnapshotsResponse, error) {
	snaps, err := s.srv.AvailableSnapshots(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &AvailableSnapshotsResponse{Snapshots: snaps}, nil
}

// ExportSnapshot sends the descriptor, then every chunk in order.
func (s *GRPCServer) ExportSnapshot(req *ExportSnapshotRequest, stream grpc.ServerStream) error {
	ctx := stream.Context()
	ch, desc, err := s.srv.ExportSnapshot(ctx, req.Height, req.Format)
	if err != nil {
		return toStatus(ctx, err)
	}
	if err := stream.SendMsg(&SnapshotMessage{Descriptor: desc}); err != nil {
		return err
	}
	for chunk := range ch {
		if err := stream.SendMsg(&SnapshotMessage{Chunk: &chunk}); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// ImportSnapshot expects the descriptor first, then chunks until the
// client closes its side.
func (s *GRPCServer) ImportSnapshot(stream grpc.ServerStream) error {
	ctx := stream.Context()
	first := new(SnapshotMessage)
	if err := stream.RecvMsg(first); err != nil {
		return err
	}
	if first.Descriptor == nil {
		return status.Error(codes.InvalidArgument, "first ImportSnapshot message must carry a descriptor")
	}

	chunks := make(chan types.SnapshotChunk)
	recvErr := make(chan error, 1)
	go func() {
		defer close(chunks)
		for {
			msg := new(SnapshotMessage)
			if err := stream.RecvMsg(msg); err != nil {
				if !errors.Is(err, io.EOF) {
					recvErr <- err
				}
				return
			}
			if msg.Chunk == nil {
				continue
			}
			select {
			case chunks <- *msg.Chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	result, err := s.srv.ImportSnapshot(ctx, *first.Descriptor, chunks)
	if err != nil {
		return toStatus(ctx, err)
	}
	select {
	case err := <-recvErr:
		return err
	default:
	}
	return stream.SendMsg(&result)
}

// --- Simulator RPC ---

func (s *GRPCServer) Simulate(ctx context.Context, req *SimulateRequest) (*types.TxOutcome, error) {
	outcome, err := s.srv.Simulate(ctx, req.Tx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &outcome, nil
}
