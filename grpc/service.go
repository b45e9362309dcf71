package airdropgrpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"github.com/blockberries/airdrop/types"
)

const serviceName = "blockberries.airdrop.v1.Ledger"

// LedgerServer is the server-side interface of the Ledger service.
type LedgerServer interface {
	Handshake(context.Context, *types.HandshakeRequest) (*types.HandshakeResponse, error)
	CheckTx(context.Context, *CheckTxRequest) (*types.GateVerdict, error)
	ExecuteBlock(context.Context, *types.FinalizedBlock) (*types.BlockOutcome, error)
	Commit(context.Context, *CommitRequest) (*types.CommitResult, error)
	Query(context.Context, *types.StateQuery) (*types.StateQueryResult, error)
	AvailableSnapshots(context.Context, *AvailableSnapshotsRequest) (*AvailableSnapshotsResponse, error)
	ExportSnapshot(*ExportSnapshotRequest, grpc.ServerStream) error
	ImportSnapshot(grpc.ServerStream) error
	Simulate(context.Context, *SimulateRequest) (*types.TxOutcome, error)
}

// RegisterLedgerServer registers srv on a gRPC server.
func RegisterLedgerServer(s grpc.ServiceRegistrar, srv LedgerServer) {
	s.RegisterService(&serviceDesc, srv)
}

// unary builds a MethodDesc handler that decodes a Req and calls fn,
// running the registered interceptor if there is one.
func unary[Req any](method string, fn func(LedgerServer, context.Context, *Req) (any, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return fn(srv.(LedgerServer), ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		return interceptor(ctx, req, info, func(ctx context.Context, req any) (any, error) {
			return fn(srv.(LedgerServer), ctx, req.(*Req))
		})
	}
}

func handlerExportSnapshot(srv any, stream grpc.ServerStream) error {
	req := new(ExportSnapshotRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(LedgerServer).ExportSnapshot(req, stream)
}

func handlerImportSnapshot(srv any, stream grpc.ServerStream) error {
	return srv.(LedgerServer).ImportSnapshot(stream)
}

// fullMethod builds the full gRPC method path.
func fullMethod(method string) string {
	return fmt.Sprintf("/%s/%s", serviceName, method)
}

// serviceDesc is the hand-written service descriptor for Ledger.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*LedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Handshake", Handler: unary("Handshake", func(s LedgerServer, ctx context.Context, r *types.HandshakeRequest) (any, error) {
			return s.Handshake(ctx, r)
		})},
		{MethodName: "CheckTx", Handler: unary("CheckTx", func(s LedgerServer, ctx context.Context, r *CheckTxRequest) (any, error) {
			return s.CheckTx(ctx, r)
		})},
		{MethodName: "ExecuteBlock", Handler: unary("ExecuteBlock", func(s LedgerServer, ctx context.Context, r *types.FinalizedBlock) (any, error) {
			return s.ExecuteBlock(ctx, r)
		})},
		{MethodName: "Commit", Handler: unary("Commit", func(s LedgerServer, ctx context.Context, r *CommitRequest) (any, error) {
			return s.Commit(ctx, r)
		})},
		{MethodName: "Query", Handler: unary("Query", func(s LedgerServer, ctx context.Context, r *types.StateQuery) (any, error) {
			return s.Query(ctx, r)
		})},
		{MethodName: "AvailableSnapshots", Handler: unary("AvailableSnapshots", func(s LedgerServer, ctx context.Context, r *AvailableSnapshotsRequest) (any, error) {
			return s.AvailableSnapshots(ctx, r)
		})},
		{MethodName: "Simulate", Handler: unary("Simulate", func(s LedgerServer, ctx context.Context, r *SimulateRequest) (any, error) {
			return s.Simulate(ctx, r)
		})},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "ExportSnapshot",
			Handler:       handlerExportSnapshot,
			ServerStreams: true,
		},
		{
			StreamName:    "ImportSnapshot",
			Handler:       handlerImportSnapshot,
			ClientStreams: true,
		},
	},
	Metadata: "blockberries/airdrop/v1/ledger.cram",
}
