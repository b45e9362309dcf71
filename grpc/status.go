package airdropgrpc

import (
	"context"
	"errors"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/blockberries/airdrop"
	"github.com/blockberries/airdrop/server"
)

// haltHeightKey is the trailer carrying HaltError.Height.
const haltHeightKey = "airdrop-halt-height"

// toStatus maps an application error onto a gRPC status. Halts also
// set a trailer so the client can rebuild the HaltError.
func toStatus(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	if h, ok := airdrop.IsHalt(err); ok {
		_ = grpc.SetTrailer(ctx, metadata.Pairs(haltHeightKey, strconv.FormatUint(h.Height, 10)))
		return status.Error(codes.Aborted, err.Error())
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, server.ErrStateSyncUnsupported), errors.Is(err, server.ErrSimulationUnsupported):
		return status.Error(codes.Unimplemented, err.Error())
	}
	if _, ok := airdrop.IsSequence(err); ok {
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// fromStatus turns an Aborted status back into a HaltError. Every
// other error is returned unchanged.
func fromStatus(err error, trailer metadata.MD) error {
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Aborted {
		return err
	}
	var height uint64
	if v := trailer.Get(haltHeightKey); len(v) > 0 {
		height, _ = strconv.ParseUint(v[0], 10, 64)
	}
	return airdrop.NewHaltError(height, st.Message(), err)
}
