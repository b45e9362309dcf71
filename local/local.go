// Package local provides an in-process airdrop connection.
//
// A host compiled into the same binary as the application uses this
// adapter to get lifecycle ordering checks and capability discovery
// without any serialization.
package local

import (
	"context"

	"github.com/blockberries/airdrop"
	"github.com/blockberries/airdrop/server"
	"github.com/blockberries/airdrop/types"
)

// Compile-time interface check.
var _ airdrop.Connection = (*Connection)(nil)

// Connection wraps a local Lifecycle implementation with lifecycle
// enforcement and capability discovery.
type Connection struct {
	srv *server.Server
}

// NewConnection creates an in-process connection wrapping app.
func NewConnection(app airdrop.Lifecycle) *Connection {
	return &Connection{srv: server.New(app)}
}

func (c *Connection) Handshake(ctx context.Context, req types.HandshakeRequest) (types.HandshakeResponse, error) {
	return c.srv.Handshake(ctx, req)
}

func (c *Connection) CheckTx(ctx context.Context, tx types.Tx, mctx types.MempoolContext) (types.GateVerdict, error) {
	return c.srv.CheckTx(ctx, tx, mctx)
}

func (c *Connection) ExecuteBlock(ctx context.Context, block types.FinalizedBlock) (types.BlockOutcome, error) {
	return c.srv.ExecuteBlock(ctx, block)
}

func (c *Connection) Commit(ctx context.Context) (types.CommitResult, error) {
	return c.srv.Commit(ctx)
}

func (c *Connection) Query(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error) {
	return c.srv.Query(ctx, req)
}

func (c *Connection) Capabilities() types.Capabilities {
	return c.srv.Capabilities()
}

func (c *Connection) AsStateSync() airdrop.StateSync {
	return c.srv.AsStateSync()
}

func (c *Connection) AsSimulator() airdrop.Simulator {
	return c.srv.AsSimulator()
}

func (c *Connection) Close() error { return c.srv.Close() }

// Server returns the underlying server.
func (c *Connection) Server() *server.Server {
	return c.srv
}
