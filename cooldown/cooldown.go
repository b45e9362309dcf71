// Package cooldown records, per account, the block height of its last
// successful airdrop.
//
// A missing record means the account has never received an airdrop and
// reads as height 0. Records are created on first use and are never
// deleted.
package cooldown

import (
	"sort"

	"github.com/blockberries/airdrop/types"
)

// Ledger is the storage the issuance gate consults. It performs no
// validation; SetLastHeight is an unconditional overwrite.
type Ledger interface {
	LastHeight(who types.AccountID) (types.Height, bool)
	SetLastHeight(who types.AccountID, at types.Height)
}

// Record is one persisted cooldown entry.
type Record struct {
	Account types.AccountID `cramberry:"1"`
	Height  types.Height    `cramberry:"2"`
}

// Compile-time interface check.
var _ Ledger = (*Map)(nil)

// Map is the in-memory Ledger backing the replicated state. It keeps
// track of the accounts written since the last TakeDirty so the
// durable store only rewrites what changed.
type Map struct {
	heights map[types.AccountID]types.Height
	dirty   map[types.AccountID]struct{}
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{
		heights: make(map[types.AccountID]types.Height),
		dirty:   make(map[types.AccountID]struct{}),
	}
}

// FromRecords rebuilds a Map from persisted records. The result has
// no dirty entries.
func FromRecords(records []Record) *Map {
	m := NewMap()
	for _, r := range records {
		m.heights[r.Account] = r.Height
	}
	return m
}

func (m *Map) LastHeight(who types.AccountID) (types.Height, bool) {
	h, ok := m.heights[who]
	return h, ok
}

func (m *Map) SetLastHeight(who types.AccountID, at types.Height) {
	m.heights[who] = at
	m.dirty[who] = struct{}{}
}

// Len returns the number of recorded accounts.
func (m *Map) Len() int { return len(m.heights) }

// Records returns every entry ordered by account.
func (m *Map) Records() []Record {
	out := make([]Record, 0, len(m.heights))
	for a, h := range m.heights {
		out = append(out, Record{Account: a, Height: h})
	}
	sortRecords(out)
	return out
}

// TakeDirty returns the entries written since the previous call,
// ordered by account, and resets the dirty set.
func (m *Map) TakeDirty() []Record {
	out := make([]Record, 0, len(m.dirty))
	for a := range m.dirty {
		out = append(out, Record{Account: a, Height: m.heights[a]})
	}
	sortRecords(out)
	m.dirty = make(map[types.AccountID]struct{})
	return out
}

// Clone returns a deep copy, dirty set included.
func (m *Map) Clone() *Map {
	c := &Map{
		heights: make(map[types.AccountID]types.Height, len(m.heights)),
		dirty:   make(map[types.AccountID]struct{}, len(m.dirty)),
	}
	for a, h := range m.heights {
		c.heights[a] = h
	}
	for a := range m.dirty {
		c.dirty[a] = struct{}{}
	}
	return c
}

func sortRecords(rs []Record) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].Account.Less(rs[j].Account) })
}
