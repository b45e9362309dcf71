// Package store persists the replicated state in LevelDB.
//
// Layout (one byte prefix per table):
//
//	0x00 meta                         => chain id, params, height, issuance, app hash
//	0x01 value slot                   => uint32
//	0x02 cooldown  blake2_128(who)|who => cooldown.Record
//	0x03 balance   blake2_128(who)|who => currency.AccountBalance
//	0x04 nonce     blake2_128(who)|who => state.NonceRecord
//
// Account keys are prefixed with a 128-bit BLAKE2b digest so that
// entries spread evenly over the key space while staying iterable.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
	"golang.org/x/crypto/blake2b"

	"github.com/blockberries/airdrop/cooldown"
	"github.com/blockberries/airdrop/currency"
	"github.com/blockberries/airdrop/state"
	"github.com/blockberries/airdrop/types"
)

const (
	prefixMeta     byte = 0x00
	prefixValue    byte = 0x01
	prefixCooldown byte = 0x02
	prefixBalance  byte = 0x03
	prefixNonce    byte = 0x04
)

var (
	keyMeta  = []byte{prefixMeta}
	keyValue = []byte{prefixValue}
)

var ErrCorrupt = errors.New("store: corrupt entry")

// Meta is the committed chain position.
type Meta struct {
	ChainID  string        `cramberry:"1"`
	Params   state.Params  `cramberry:"2"`
	Height   uint64        `cramberry:"3"`
	Issuance types.Balance `cramberry:"4"`
	AppHash  types.AppHash `cramberry:"5"`
}

// Options tune the LevelDB instance.
type Options struct {
	// Block cache size in MiB. 0 = LevelDB default.
	CacheMiB int
	// Open file handles. 0 = LevelDB default.
	Handles int
	// Fsync every commit.
	Sync bool
}

// Store is a LevelDB-backed state store. It is safe for use by one
// committer at a time.
type Store struct {
	db   *leveldb.DB
	sync bool
}

// Open opens or creates the database at path.
func Open(path string, o Options) (*Store, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{
		BlockCacheCapacity:     o.CacheMiB * opt.MiB,
		OpenFilesCacheCapacity: o.Handles,
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	return &Store{db: db, sync: o.Sync}, nil
}

// OpenMem opens a store that lives only in memory.
func OpenMem() (*Store, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("store: open memory: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// AccountKey returns the table key for who.
func AccountKey(prefix byte, who types.AccountID) []byte {
	h, _ := blake2b.New(16, nil)
	h.Write(who[:])
	k := make([]byte, 0, 1+16+types.AccountIDLength)
	k = append(k, prefix)
	k = h.Sum(k)
	return append(k, who[:]...)
}

// Meta returns the committed chain position, or false if nothing has
// been committed yet.
func (s *Store) Meta() (Meta, bool, error) {
	var m Meta
	raw, err := s.db.Get(keyMeta, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return m, false, nil
	}
	if err != nil {
		return m, false, fmt.Errorf("store: read meta: %w", err)
	}
	if err := cramberry.Unmarshal(raw, &m); err != nil {
		return m, false, fmt.Errorf("%w: meta: %w", ErrCorrupt, err)
	}
	return m, true, nil
}

// Commit drains st's pending changes and writes them together with
// the new meta in one batch. Either everything lands or nothing does.
func (s *Store) Commit(st *state.State, hash types.AppHash) error {
	ch := st.TakeChanges()
	b := new(leveldb.Batch)
	if err := putMeta(b, st, ch.Issuance, hash); err != nil {
		return err
	}
	if ch.Something != nil {
		b.Put(keyValue, encodeValue(*ch.Something))
	}
	for _, r := range ch.Cooldowns {
		if err := put(b, AccountKey(prefixCooldown, r.Account), r); err != nil {
			return err
		}
	}
	for _, r := range ch.Balances {
		if err := put(b, AccountKey(prefixBalance, r.Account), r); err != nil {
			return err
		}
	}
	for _, r := range ch.Nonces {
		if err := put(b, AccountKey(prefixNonce, r.Account), r); err != nil {
			return err
		}
	}
	return s.write(b)
}

// Replace discards everything stored and writes st in full. Used after
// a snapshot import.
func (s *Store) Replace(st *state.State, hash types.AppHash) error {
	b := new(leveldb.Batch)
	it := s.db.NewIterator(nil, nil)
	for it.Next() {
		b.Delete(append([]byte(nil), it.Key()...))
	}
	it.Release()
	if err := it.Error(); err != nil {
		return fmt.Errorf("store: scan: %w", err)
	}

	snap := st.Snapshot()
	if err := putMeta(b, st, snap.Issuance, hash); err != nil {
		return err
	}
	if snap.Something != nil {
		b.Put(keyValue, encodeValue(*snap.Something))
	}
	for _, r := range snap.Cooldowns {
		if err := put(b, AccountKey(prefixCooldown, r.Account), r); err != nil {
			return err
		}
	}
	for _, r := range snap.Balances {
		if err := put(b, AccountKey(prefixBalance, r.Account), r); err != nil {
			return err
		}
	}
	for _, r := range snap.Nonces {
		if err := put(b, AccountKey(prefixNonce, r.Account), r); err != nil {
			return err
		}
	}
	if err := s.write(b); err != nil {
		return err
	}
	st.TakeChanges()
	return nil
}

// Load rebuilds the committed state. It returns false when the store
// is empty.
func (s *Store) Load() (*state.State, Meta, bool, error) {
	m, ok, err := s.Meta()
	if err != nil || !ok {
		return nil, m, false, err
	}
	snap := state.Snapshot{
		ChainID:  m.ChainID,
		Params:   m.Params,
		Height:   m.Height,
		Issuance: m.Issuance,
	}

	raw, err := s.db.Get(keyValue, nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
	case err != nil:
		return nil, m, false, fmt.Errorf("store: read value slot: %w", err)
	default:
		v, err := decodeValue(raw)
		if err != nil {
			return nil, m, false, err
		}
		snap.Something = &v
	}

	if snap.Cooldowns, err = scan[cooldown.Record](s.db, prefixCooldown); err != nil {
		return nil, m, false, err
	}
	if snap.Balances, err = scan[currency.AccountBalance](s.db, prefixBalance); err != nil {
		return nil, m, false, err
	}
	if snap.Nonces, err = scan[state.NonceRecord](s.db, prefixNonce); err != nil {
		return nil, m, false, err
	}
	return state.Restore(snap), m, true, nil
}

func (s *Store) write(b *leveldb.Batch) error {
	if err := s.db.Write(b, &opt.WriteOptions{Sync: s.sync}); err != nil {
		return fmt.Errorf("store: write batch: %w", err)
	}
	return nil
}

func putMeta(b *leveldb.Batch, st *state.State, issuance types.Balance, hash types.AppHash) error {
	return put(b, keyMeta, Meta{
		ChainID:  st.ChainID,
		Params:   st.Params,
		Height:   st.Height,
		Issuance: issuance,
		AppHash:  hash,
	})
}

func put(b *leveldb.Batch, key []byte, v any) error {
	raw, err := cramberry.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %x: %w", key, err)
	}
	b.Put(key, raw)
	return nil
}

// scan decodes every entry of one table. Entries come back in key
// order, which is not account order; state.Restore does not care.
func scan[T any](db *leveldb.DB, prefix byte) ([]T, error) {
	var out []T
	it := db.NewIterator(util.BytesPrefix([]byte{prefix}), nil)
	defer it.Release()
	for it.Next() {
		var v T
		if err := cramberry.Unmarshal(it.Value(), &v); err != nil {
			return nil, fmt.Errorf("%w: %x: %w", ErrCorrupt, it.Key(), err)
		}
		out = append(out, v)
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("store: scan %#x: %w", prefix, err)
	}
	return out, nil
}

func encodeValue(v uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, v)
}

func decodeValue(raw []byte) (uint32, error) {
	if len(raw) != 4 {
		return 0, fmt.Errorf("%w: value slot is %d bytes", ErrCorrupt, len(raw))
	}
	return binary.BigEndian.Uint32(raw), nil
}
