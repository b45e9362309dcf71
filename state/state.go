// Package state holds the replicated application state: parameters,
// the cooldown ledger, the currency ledger, signer nonces and the
// placeholder value slot.
//
// The encoding is deterministic (every map is exported as a slice
// sorted by account), so the AppHash only depends on content.
package state

import (
	"crypto/sha256"
	"fmt"
	"sort"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/airdrop/cooldown"
	"github.com/blockberries/airdrop/currency"
	"github.com/blockberries/airdrop/issuance"
	"github.com/blockberries/airdrop/types"
)

// Params are the consensus parameters fixed at genesis.
type Params struct {
	// Blocks an account waits between airdrops.
	Delay types.Height `cramberry:"1" json:"delay"`
	// Smallest balance that brings an account into existence.
	ExistentialDeposit types.Balance `cramberry:"2" json:"existential_deposit"`
	// Largest amount one airdrop may request. 0 = unbounded.
	MaxAmount types.Amount `cramberry:"3" json:"max_amount"`
}

// DefaultParams returns the parameters used when genesis sets none.
func DefaultParams() Params {
	return Params{Delay: issuance.Delay, ExistentialDeposit: 1}
}

// NonceRecord is one persisted signer nonce.
type NonceRecord struct {
	Account types.AccountID `cramberry:"1"`
	Nonce   uint64          `cramberry:"2"`
}

// State is the full replicated state at one height.
type State struct {
	ChainID   string
	Params    Params
	Height    uint64
	Cooldowns *cooldown.Map
	Bank      *currency.Bank

	nonces         map[types.AccountID]uint64
	dirtyNonces    map[types.AccountID]struct{}
	something      *uint32
	somethingDirty bool
}

// New returns an empty state at height 0.
func New(chainID string, p Params) *State {
	return &State{
		ChainID:     chainID,
		Params:      p,
		Cooldowns:   cooldown.NewMap(),
		Bank:        currency.NewBank(p.ExistentialDeposit),
		nonces:      make(map[types.AccountID]uint64),
		dirtyNonces: make(map[types.AccountID]struct{}),
	}
}

// Gate returns an issuance gate over this state's ledgers.
func (s *State) Gate() *issuance.Gate {
	return issuance.NewGate(s.Cooldowns, s.Bank, issuance.WithDelay(s.Params.Delay))
}

// Nonce returns the next nonce who must sign with.
func (s *State) Nonce(who types.AccountID) uint64 { return s.nonces[who] }

// IncNonce consumes who's current nonce.
func (s *State) IncNonce(who types.AccountID) {
	s.nonces[who]++
	s.dirtyNonces[who] = struct{}{}
}

// Something returns the placeholder slot, if set.
func (s *State) Something() (uint32, bool) {
	if s.something == nil {
		return 0, false
	}
	return *s.something, true
}

// SetSomething overwrites the placeholder slot.
func (s *State) SetSomething(v uint32) {
	s.something = &v
	s.somethingDirty = true
}

// Clone returns a deep copy, including pending changes.
func (s *State) Clone() *State {
	c := &State{
		ChainID:        s.ChainID,
		Params:         s.Params,
		Height:         s.Height,
		Cooldowns:      s.Cooldowns.Clone(),
		Bank:           s.Bank.Clone(),
		nonces:         make(map[types.AccountID]uint64, len(s.nonces)),
		dirtyNonces:    make(map[types.AccountID]struct{}, len(s.dirtyNonces)),
		somethingDirty: s.somethingDirty,
	}
	for a, n := range s.nonces {
		c.nonces[a] = n
	}
	for a := range s.dirtyNonces {
		c.dirtyNonces[a] = struct{}{}
	}
	if s.something != nil {
		v := *s.something
		c.something = &v
	}
	return c
}

// Changes is what a block wrote, in deterministic order.
type Changes struct {
	Height    uint64
	Issuance  types.Balance
	Cooldowns []cooldown.Record
	Balances  []currency.AccountBalance
	Nonces    []NonceRecord
	// Something is set when the slot was written.
	Something *uint32
}

// TakeChanges drains the pending writes of every ledger.
func (s *State) TakeChanges() Changes {
	ch := Changes{
		Height:    s.Height,
		Issuance:  s.Bank.TotalIssuance(),
		Cooldowns: s.Cooldowns.TakeDirty(),
		Balances:  s.Bank.TakeDirty(),
		Nonces:    make([]NonceRecord, 0, len(s.dirtyNonces)),
	}
	for a := range s.dirtyNonces {
		ch.Nonces = append(ch.Nonces, NonceRecord{Account: a, Nonce: s.nonces[a]})
	}
	sortNonces(ch.Nonces)
	s.dirtyNonces = make(map[types.AccountID]struct{})
	if s.somethingDirty {
		v := *s.something
		ch.Something = &v
		s.somethingDirty = false
	}
	return ch
}

// Snapshot is the flat, ordered form of a State.
type Snapshot struct {
	ChainID   string                    `cramberry:"1"`
	Params    Params                    `cramberry:"2"`
	Height    uint64                    `cramberry:"3"`
	Issuance  types.Balance             `cramberry:"4"`
	Balances  []currency.AccountBalance `cramberry:"5"`
	Cooldowns []cooldown.Record         `cramberry:"6"`
	Nonces    []NonceRecord             `cramberry:"7"`
	Something *uint32                   `cramberry:"8"`
}

// Snapshot flattens s.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		ChainID:   s.ChainID,
		Params:    s.Params,
		Height:    s.Height,
		Issuance:  s.Bank.TotalIssuance(),
		Balances:  s.Bank.Balances(),
		Cooldowns: s.Cooldowns.Records(),
		Nonces:    make([]NonceRecord, 0, len(s.nonces)),
	}
	for a, n := range s.nonces {
		snap.Nonces = append(snap.Nonces, NonceRecord{Account: a, Nonce: n})
	}
	sortNonces(snap.Nonces)
	if s.something != nil {
		v := *s.something
		snap.Something = &v
	}
	return snap
}

// Restore rebuilds a State from its flat form. The result has no
// pending changes.
func Restore(snap Snapshot) *State {
	s := &State{
		ChainID:     snap.ChainID,
		Params:      snap.Params,
		Height:      snap.Height,
		Cooldowns:   cooldown.FromRecords(snap.Cooldowns),
		Bank:        currency.FromBalances(snap.Params.ExistentialDeposit, snap.Issuance, snap.Balances),
		nonces:      make(map[types.AccountID]uint64, len(snap.Nonces)),
		dirtyNonces: make(map[types.AccountID]struct{}),
	}
	for _, n := range snap.Nonces {
		s.nonces[n.Account] = n.Nonce
	}
	if snap.Something != nil {
		v := *snap.Something
		s.something = &v
	}
	return s
}

// Encode returns the canonical encoding of s.
func (s *State) Encode() ([]byte, error) {
	data, err := cramberry.Marshal(s.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}

// Decode parses the output of Encode.
func Decode(data []byte) (*State, error) {
	var snap Snapshot
	if err := cramberry.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return Restore(snap), nil
}

// AppHash is the sha256 of the canonical encoding.
func (s *State) AppHash() (types.AppHash, error) {
	data, err := s.Encode()
	if err != nil {
		return types.AppHash{}, err
	}
	return types.AppHash(sha256.Sum256(data)), nil
}

func sortNonces(ns []NonceRecord) {
	sort.Slice(ns, func(i, j int) bool { return ns[i].Account.Less(ns[j].Account) })
}
