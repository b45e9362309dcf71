package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/blockberries/airdrop"
	"github.com/blockberries/airdrop/logging"
	"github.com/blockberries/airdrop/types"
)

var (
	ErrStateSyncUnsupported  = errors.New("server: StateSync not supported")
	ErrSimulationUnsupported = errors.New("server: Simulator not supported")
)

func logger() *zap.SugaredLogger { return logging.Named("server") }

// Server wraps an application with lifecycle enforcement and
// capability routing. Hosts talk to the application only through it.
type Server struct {
	app   airdrop.Lifecycle
	guard *LifecycleGuard
	caps  types.Capabilities

	// Optional interfaces (nil if not implemented).
	stateSync airdrop.StateSync
	simulator airdrop.Simulator

	// Outcome held between ExecuteBlock and Commit.
	mu             sync.Mutex
	lastOutcome    *types.BlockOutcome
	lastExecHeight uint64
}

// Compile-time interface check.
var _ airdrop.Connection = (*Server)(nil)

// New creates a Server wrapping app.
func New(app airdrop.Lifecycle) *Server {
	s := &Server{
		app:   app,
		guard: NewLifecycleGuard(),
	}
	// Validated against the declared capabilities at handshake.
	s.stateSync, _ = app.(airdrop.StateSync)
	s.simulator, _ = app.(airdrop.Simulator)
	return s
}

// Handshake performs the startup handshake, validates the declared
// capabilities and moves the state machine to Ready.
func (s *Server) Handshake(ctx context.Context, req types.HandshakeRequest) (types.HandshakeResponse, error) {
	if err := s.guard.AcquireHandshake(); err != nil {
		return types.HandshakeResponse{}, err
	}

	resp, err := s.app.Handshake(ctx, req)
	if err != nil {
		s.guard.FailHandshake()
		return resp, err
	}
	if err := discoverCapabilities(s.app, resp.Capabilities); err != nil {
		s.guard.FailHandshake()
		return resp, err
	}

	s.caps = resp.Capabilities
	s.guard.CompleteHandshake()
	logger().Infow("handshake complete", "capabilities", resp.Capabilities.String(), "fresh", req.LastCommitted == nil)
	return resp, nil
}

// CheckTx gate-checks a transaction for admission. Safe for
// concurrent use.
func (s *Server) CheckTx(ctx context.Context, tx types.Tx, mctx types.MempoolContext) (types.GateVerdict, error) {
	if err := s.guard.CheckConcurrent("CheckTx"); err != nil {
		return types.GateVerdict{}, err
	}
	return s.app.CheckTx(ctx, tx, mctx)
}

// ExecuteBlock deterministically executes a finalized block.
func (s *Server) ExecuteBlock(ctx context.Context, block types.FinalizedBlock) (types.BlockOutcome, error) {
	if err := s.guard.AcquireExecute(); err != nil {
		return types.BlockOutcome{}, err
	}

	start := time.Now()
	outcome, err := s.app.ExecuteBlock(ctx, block)
	if err != nil {
		s.guard.FailExecute()
		logger().Warnw("execute block failed", "height", block.Height, "err", err)
		return outcome, err
	}

	s.mu.Lock()
	s.lastOutcome = &outcome
	s.lastExecHeight = block.Height
	s.mu.Unlock()

	s.guard.CompleteExecute()
	logger().Debugw("block executed", "height", block.Height, "time", block.Time.ToTime(), "txs", len(block.Txs), "took", time.Since(start))
	return outcome, nil
}

// Commit persists the changes of the last ExecuteBlock.
func (s *Server) Commit(ctx context.Context) (types.CommitResult, error) {
	if err := s.guard.AcquireCommit(); err != nil {
		return types.CommitResult{}, err
	}

	result, err := s.app.Commit(ctx)

	s.mu.Lock()
	s.lastOutcome = nil
	height := s.lastExecHeight
	s.mu.Unlock()

	s.guard.CompleteCommit()
	if err != nil {
		if _, halt := airdrop.IsHalt(err); halt {
			logger().Errorw("application halted", "height", height, "err", err)
		}
		return result, err
	}
	logger().Debugw("block committed", "height", height)
	return result, nil
}

// Query reads committed state. Safe for concurrent use.
func (s *Server) Query(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error) {
	if err := s.guard.CheckConcurrent("Query"); err != nil {
		return types.StateQueryResult{}, err
	}
	return s.app.Query(ctx, req)
}

// Capabilities returns the declared capabilities. Only valid after
// Handshake.
func (s *Server) Capabilities() types.Capabilities {
	return s.caps
}

// AvailableSnapshots delegates to StateSync if supported.
func (s *Server) AvailableSnapshots(ctx context.Context) ([]types.SnapshotDescriptor, error) {
	if s.stateSync == nil {
		return nil, ErrStateSyncUnsupported
	}
	return s.stateSync.AvailableSnapshots(ctx)
}

// ExportSnapshot delegates to StateSync if supported.
func (s *Server) ExportSnapshot(ctx context.Context, height uint64, format uint32) (<-chan types.SnapshotChunk, *types.SnapshotDescriptor, error) {
	if s.stateSync == nil {
		return nil, nil, ErrStateSyncUnsupported
	}
	return s.stateSync.ExportSnapshot(ctx, height, format)
}

// ImportSnapshot delegates to StateSync if supported.
func (s *Server) ImportSnapshot(ctx context.Context, desc types.SnapshotDescriptor, chunks <-chan types.SnapshotChunk) (types.ImportResult, error) {
	if s.stateSync == nil {
		return types.ImportResult{}, ErrStateSyncUnsupported
	}
	return s.stateSync.ImportSnapshot(ctx, desc, chunks)
}

// Simulate delegates to Simulator if supported. Safe for concurrent
// use.
func (s *Server) Simulate(ctx context.Context, tx types.Tx) (types.TxOutcome, error) {
	if s.simulator == nil {
		return types.TxOutcome{}, ErrSimulationUnsupported
	}
	if err := s.guard.CheckConcurrent("Simulate"); err != nil {
		return types.TxOutcome{}, err
	}
	return s.simulator.Simulate(ctx, tx)
}

// AsStateSync returns the StateSync interface or nil.
func (s *Server) AsStateSync() airdrop.StateSync {
	if s.caps.Has(types.CapStateSync) {
		return s.stateSync
	}
	return nil
}

// AsSimulator returns the Simulator interface or nil.
func (s *Server) AsSimulator() airdrop.Simulator {
	if s.caps.Has(types.CapSimulation) {
		return s.simulator
	}
	return nil
}

// LastOutcome returns the BlockOutcome held between ExecuteBlock and
// Commit, or nil.
func (s *Server) LastOutcome() *types.BlockOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastOutcome
}

// Close is a no-op for the server wrapper.
func (s *Server) Close() error { return nil }

// discoverCapabilities checks the declared capabilities against the
// interfaces app actually implements.
func discoverCapabilities(app airdrop.Lifecycle, declared types.Capabilities) error {
	_, hasStateSync := app.(airdrop.StateSync)
	_, hasSimulator := app.(airdrop.Simulator)

	if declared.Has(types.CapStateSync) && !hasStateSync {
		return errors.New("server: app declared CapStateSync but does not implement StateSync")
	}
	if declared.Has(types.CapSimulation) && !hasSimulator {
		return errors.New("server: app declared CapSimulation but does not implement Simulator")
	}

	if !declared.Has(types.CapStateSync) && hasStateSync {
		logger().Warn("app implements StateSync but did not declare it; capability will not be used")
	}
	if !declared.Has(types.CapSimulation) && hasSimulator {
		logger().Warn("app implements Simulator but did not declare it; capability will not be used")
	}
	return nil
}
