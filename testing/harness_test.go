package airdroptest

import (
	"testing"

	"github.com/blockberries/airdrop"
	"github.com/blockberries/airdrop/server"
	"github.com/blockberries/airdrop/types"
)

// handle exposes optional interfaces only through the accessors, the
// way the in-process and gRPC connections do.
type handle struct {
	airdrop.Lifecycle
	srv *server.Server
}

func (c handle) Capabilities() types.Capabilities { return c.srv.Capabilities() }
func (c handle) AsStateSync() airdrop.StateSync   { return c.srv.AsStateSync() }
func (c handle) AsSimulator() airdrop.Simulator   { return c.srv.AsSimulator() }
func (c handle) Close() error                     { return nil }

func newHandle(app airdrop.Lifecycle) handle {
	srv := server.New(app)
	return handle{Lifecycle: srv, srv: srv}
}

func TestHarness_DrivesConnectionDirectly(t *testing.T) {
	mock := &MockApp{DeclaredCapabilities: types.CapStateSync | types.CapSimulation}
	conn := newHandle(mock)

	h := NewHarness(t, conn)
	if _, ok := h.Conn().(handle); !ok {
		t.Fatalf("expected the connection to be used as is, got %T", h.Conn())
	}

	h.GenesisDefault()
	if !conn.Capabilities().Has(types.CapStateSync) {
		t.Fatal("expected StateSync to be declared after handshake")
	}
	h.ExecuteAndCommit(MakeEmptyBlock(1))
	h.Simulate(types.Tx{1})

	if got := mock.HandshakeCalls.Load(); got != 1 {
		t.Errorf("expected 1 handshake, got %d", got)
	}
	if got := mock.SimulateCalls.Load(); got != 1 {
		t.Errorf("expected 1 simulate, got %d", got)
	}
}

func TestHarness_WrapsBareApplication(t *testing.T) {
	h := NewHarness(t, &MockApp{})
	if _, ok := h.Conn().(*server.Server); !ok {
		t.Fatalf("expected a lifecycle server, got %T", h.Conn())
	}
	h.GenesisDefault()
	h.ExecuteAndCommit(MakeEmptyBlock(1))
}

func TestHarness_ConnectionWithoutOptionalMethods(t *testing.T) {
	var conn airdrop.Lifecycle = newHandle(&MockApp{DeclaredCapabilities: types.CapStateSync})
	if _, ok := conn.(airdrop.StateSync); ok {
		t.Fatal("handle must not implement StateSync")
	}
	h := NewHarness(t, conn)
	h.GenesisDefault()
	if h.Conn().AsStateSync() == nil {
		t.Fatal("expected StateSync through the connection")
	}
}
