// Package app is the airdrop ledger application.
//
// Transactions are signed envelopes (see package auth). Each block is
// executed against a clone of the committed state at the block height;
// Commit persists the clone and swaps it in. Queries and CheckTx only
// ever see committed state.
package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/blockberries/airdrop"
	"github.com/blockberries/airdrop/auth"
	"github.com/blockberries/airdrop/dispatch"
	"github.com/blockberries/airdrop/issuance"
	"github.com/blockberries/airdrop/logging"
	"github.com/blockberries/airdrop/metrics"
	"github.com/blockberries/airdrop/state"
	"github.com/blockberries/airdrop/store"
	"github.com/blockberries/airdrop/types"
)

// Compile-time interface check.
var _ airdrop.Application = (*App)(nil)

// Capabilities declared at handshake.
const Capabilities = types.CapStateSync | types.CapSimulation

// Priorities handed to the host mempool. Transfers go first so that
// accounts they create exist before airdrops to them execute.
const (
	priorityTransfer int64 = 10
	priorityDefault  int64 = 5
	priorityAirdrop  int64 = 1
)

var ErrHeightNotIncreasing = errors.New("block height not above committed height")

func logger() *zap.SugaredLogger { return logging.Named("app") }

// Option configures an App.
type Option func(*App)

// WithStore persists every commit to st and restores from it at
// handshake.
func WithStore(st *store.Store) Option {
	return func(a *App) { a.store = st }
}

// WithMetrics records application metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithMempoolMaxAmount rejects airdrop requests above limit at
// admission. It does not affect block execution.
func WithMempoolMaxAmount(limit uint64) Option {
	return func(a *App) { a.mempoolMax = types.Amount(limit) }
}

// App implements airdrop.Application.
type App struct {
	mu         sync.RWMutex
	current    *state.State
	staged     *state.State
	stagedHash types.AppHash
	// airdrop requests of the staged block, recorded once it commits
	stagedDrops []airdropRequest

	store      *store.Store
	metrics    *metrics.Metrics
	mempoolMax types.Amount
}

// New creates an application with empty state. The state is replaced
// at Handshake by genesis or by what the store holds.
func New(opts ...Option) *App {
	a := &App{current: state.New("", state.DefaultParams())}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *App) Handshake(_ context.Context, req types.HandshakeRequest) (types.HandshakeResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if req.LastCommitted == nil {
		return a.initChain(req.Genesis)
	}
	return a.restart(*req.LastCommitted)
}

func (a *App) initChain(doc *types.GenesisDoc) (types.HandshakeResponse, error) {
	if a.store != nil {
		if m, ok, err := a.store.Meta(); err != nil {
			return types.HandshakeResponse{}, err
		} else if ok {
			return types.HandshakeResponse{}, airdrop.NewHaltError(m.Height, "genesis requested but store holds committed state", nil)
		}
	}
	if doc == nil {
		doc = &types.GenesisDoc{}
	}
	g, err := state.ParseGenesis(doc.AppState)
	if err != nil {
		return types.HandshakeResponse{}, err
	}
	s, events, err := g.Build(doc.ChainID)
	if err != nil {
		return types.HandshakeResponse{}, err
	}
	if doc.InitialHeight > 0 {
		s.Height = doc.InitialHeight - 1
	}
	h, err := s.AppHash()
	if err != nil {
		return types.HandshakeResponse{}, err
	}
	a.current = s
	var genesisTime time.Time
	if !doc.GenesisTime.IsZero() {
		genesisTime = doc.GenesisTime.ToTime()
	}
	logger().Infow("genesis",
		"chain_id", doc.ChainID,
		"genesis_time", genesisTime,
		"delay", s.Params.Delay,
		"existential_deposit", s.Params.ExistentialDeposit,
		"max_amount", s.Params.MaxAmount,
		"endowed", len(events),
		"issuance", s.Bank.TotalIssuance(),
	)
	return types.HandshakeResponse{AppHash: &h, Capabilities: Capabilities}, nil
}

func (a *App) restart(host types.BlockID) (types.HandshakeResponse, error) {
	if a.store != nil {
		s, m, ok, err := a.store.Load()
		if err != nil {
			return types.HandshakeResponse{}, airdrop.NewHaltError(host.Height, "load state", err)
		}
		if !ok {
			// Nothing committed: the host has to replay from genesis.
			logger().Warnw("store is empty on restart", "host_height", host.Height)
			return types.HandshakeResponse{Capabilities: Capabilities}, nil
		}
		h, err := s.AppHash()
		if err != nil {
			return types.HandshakeResponse{}, err
		}
		if h != m.AppHash {
			return types.HandshakeResponse{}, airdrop.NewHaltError(m.Height, "stored app hash does not match stored state", nil)
		}
		a.current = s
		a.metrics.Committed(s.Height, uint64(s.Bank.TotalIssuance()), s.Cooldowns.Len(), s.Bank.Len())
	}

	h, err := a.current.AppHash()
	if err != nil {
		return types.HandshakeResponse{}, err
	}
	logger().Infow("restart", "height", a.current.Height, "host_height", host.Height)
	return types.HandshakeResponse{
		LastBlock:    &types.BlockID{Height: a.current.Height},
		AppHash:      &h,
		Capabilities: Capabilities,
	}, nil
}

func (a *App) CheckTx(_ context.Context, tx types.Tx, _ types.MempoolContext) (types.GateVerdict, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	v := a.admit(tx)
	a.metrics.CheckTx(strconv.FormatUint(uint64(v.Code), 10))
	return v, nil
}

func (a *App) admit(tx types.Tx) types.GateVerdict {
	s := a.current
	signed, err := auth.Open(s.ChainID, tx)
	if err != nil {
		return reject(err)
	}
	who := signed.Origin
	if next := s.Nonce(who); signed.Envelope.Nonce < next {
		return types.GateVerdict{
			Code: types.CodeBadNonce,
			Info: fmt.Sprintf("stale nonce %d, next is %d", signed.Envelope.Nonce, next),
		}
	}

	call := signed.Envelope.Call
	priority := priorityDefault
	switch call.Kind {
	case types.CallAirdrop:
		amount := types.Amount(call.Amount)
		if limit := s.Params.MaxAmount; limit != 0 && amount > limit {
			return reject(fmt.Errorf("%w: %d > %d", dispatch.ErrAmountTooLarge, amount, limit))
		}
		if a.mempoolMax != 0 && amount > a.mempoolMax {
			return reject(fmt.Errorf("%w: %d > node limit %d", dispatch.ErrAmountTooLarge, amount, a.mempoolMax))
		}
		if ok, next := s.Gate().Eligibility(who, types.Height(s.Height+1)); !ok {
			return reject(fmt.Errorf("%w: eligible at height %d", issuance.ErrDelayNotFinished, next))
		}
		priority = priorityAirdrop
	case types.CallTransfer:
		priority = priorityTransfer
	case types.CallStoreValue, types.CallBumpValue:
	default:
		return reject(fmt.Errorf("%w: %s", dispatch.ErrUnknownCall, call.Kind))
	}
	return types.GateVerdict{Code: types.CodeOK, Priority: priority, Sender: who.String()}
}

func reject(err error) types.GateVerdict {
	return types.GateVerdict{Code: dispatch.Code(err), Info: err.Error()}
}

func (a *App) ExecuteBlock(_ context.Context, block types.FinalizedBlock) (types.BlockOutcome, error) {
	start := time.Now()
	a.mu.RLock()
	committed := a.current.Height
	s := a.current.Clone()
	a.mu.RUnlock()

	if block.Height <= committed {
		return types.BlockOutcome{}, fmt.Errorf("%w: %d <= %d", ErrHeightNotIncreasing, block.Height, committed)
	}
	s.Height = block.Height

	var drops []airdropRequest
	outcomes := make([]types.TxOutcome, len(block.Txs))
	for i, tx := range block.Txs {
		outcomes[i] = executeTx(s, uint32(i), tx, &drops)
	}

	h, err := s.AppHash()
	if err != nil {
		return types.BlockOutcome{}, err
	}

	a.mu.Lock()
	a.staged = s
	a.stagedHash = h
	a.stagedDrops = drops
	a.mu.Unlock()

	a.metrics.BlockExecuted(time.Since(start))
	return types.BlockOutcome{TxOutcomes: outcomes, AppHash: h}, nil
}

func (a *App) Commit(_ context.Context) (types.CommitResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.staged == nil {
		return types.CommitResult{}, errors.New("commit without executed block")
	}
	s := a.staged
	if a.store != nil {
		if err := a.store.Commit(s, a.stagedHash); err != nil {
			return types.CommitResult{}, airdrop.NewHaltError(s.Height, "persist state", err)
		}
	} else {
		s.TakeChanges()
	}
	a.current = s
	a.staged = nil
	for _, d := range a.stagedDrops {
		a.metrics.Airdrop(d.result, d.amount)
	}
	a.stagedDrops = nil

	a.metrics.Committed(s.Height, uint64(s.Bank.TotalIssuance()), s.Cooldowns.Len(), s.Bank.Len())
	// Only the latest state is kept, so there is no pruning preference.
	return types.CommitResult{}, nil
}

func (a *App) Simulate(_ context.Context, tx types.Tx) (types.TxOutcome, error) {
	a.mu.RLock()
	s := a.current.Clone()
	a.mu.RUnlock()

	s.Height++
	return executeTx(s, 0, tx, nil), nil
}

// airdropRequest is one executed airdrop call and how it ended.
type airdropRequest struct {
	result string
	amount uint64
}

// executeTx runs one transaction against s at s.Height. A failed
// transaction leaves s unchanged apart from the signer's nonce.
// Airdrop calls are appended to drops when drops is non-nil.
func executeTx(s *state.State, index uint32, tx types.Tx, drops *[]airdropRequest) types.TxOutcome {
	signed, err := auth.Open(s.ChainID, tx)
	if err != nil {
		return types.TxOutcome{Index: index, Code: dispatch.Code(err), Info: err.Error()}
	}
	call := signed.Envelope.Call
	res, err := dispatch.ApplySigned(s, signed, types.Height(s.Height))
	if call.Kind == types.CallAirdrop && drops != nil {
		*drops = append(*drops, airdropRequest{result: airdropResult(err), amount: call.Amount})
	}
	if err != nil {
		return types.TxOutcome{Index: index, Code: dispatch.Code(err), Info: err.Error()}
	}
	return types.TxOutcome{Index: index, Code: types.CodeOK, Data: res.Data, Events: res.Events}
}

func airdropResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, issuance.ErrDelayNotFinished):
		return metrics.ResultDelayNotFinished
	case errors.Is(err, issuance.ErrSomethingWentWrong):
		return metrics.ResultSomethingWrong
	default:
		return metrics.ResultRejected
	}
}
