package airdroptest

import (
	"context"
	"sync"
	"testing"

	"github.com/blockberries/airdrop"
	"github.com/blockberries/airdrop/types"
)

// RunComplianceSuite checks that an application behaves correctly
// under the host lifecycle. factory must return a fresh instance on
// every call.
func RunComplianceSuite(t *testing.T, factory func() airdrop.Lifecycle) {
	t.Helper()

	// Arbitrary bytes; applications must turn them into a failed
	// outcome rather than an error.
	garbage := []types.Tx{
		{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
		{0x02, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
		{0x03, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
	}

	t.Run("genesis_handshake", func(t *testing.T) {
		h := NewHarness(t, factory())
		resp := h.GenesisDefault()
		if resp.LastBlock != nil {
			t.Error("genesis handshake should return nil LastBlock")
		}
		if resp.AppHash == nil {
			t.Error("genesis handshake should return a non-nil AppHash")
		}
	})

	t.Run("execute_commit_cycle", func(t *testing.T) {
		h := NewHarness(t, factory())
		h.GenesisDefault()

		for i := uint64(1); i <= 5; i++ {
			outcome := h.ExecuteAndCommit(MakeEmptyBlock(i))
			if outcome.AppHash == (types.AppHash{}) {
				t.Errorf("height %d: zero app hash", i)
			}
		}
	})

	t.Run("empty_blocks_deterministic", func(t *testing.T) {
		h1 := NewHarness(t, factory())
		h1.GenesisDefault()
		h2 := NewHarness(t, factory())
		h2.GenesisDefault()

		for i := uint64(1); i <= 3; i++ {
			block := MakeEmptyBlock(i)
			o1 := h1.ExecuteAndCommit(block)
			o2 := h2.ExecuteAndCommit(block)
			if o1.AppHash != o2.AppHash {
				t.Errorf("height %d: non-deterministic: %x != %x", i, o1.AppHash, o2.AppHash)
			}
		}
	})

	t.Run("deterministic_with_txs", func(t *testing.T) {
		h1 := NewHarness(t, factory())
		h1.GenesisDefault()
		h2 := NewHarness(t, factory())
		h2.GenesisDefault()

		block := MakeBlock(1, garbage[0])
		o1 := h1.ExecuteAndCommit(block)
		o2 := h2.ExecuteAndCommit(block)
		if o1.AppHash != o2.AppHash {
			t.Errorf("non-deterministic with txs: %x != %x", o1.AppHash, o2.AppHash)
		}
		if len(o1.TxOutcomes) != len(o2.TxOutcomes) {
			t.Errorf("outcome count mismatch: %d != %d", len(o1.TxOutcomes), len(o2.TxOutcomes))
		}
	})

	t.Run("concurrent_checktx_after_handshake", func(t *testing.T) {
		h := NewHarness(t, factory())
		h.GenesisDefault()

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := h.Conn().CheckTx(context.Background(), garbage[0], types.MempoolFirstSeen); err != nil {
					t.Errorf("concurrent CheckTx failed: %v", err)
				}
			}()
		}
		wg.Wait()
	})

	t.Run("concurrent_query_after_handshake", func(t *testing.T) {
		h := NewHarness(t, factory())
		h.GenesisDefault()

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := h.Conn().Query(context.Background(), types.StateQuery{Path: types.PathIssuance}); err != nil {
					t.Errorf("concurrent Query failed: %v", err)
				}
			}()
		}
		wg.Wait()
	})

	t.Run("query_returns_height", func(t *testing.T) {
		h := NewHarness(t, factory())
		h.GenesisDefault()
		h.ExecuteAndCommit(MakeEmptyBlock(1))
		h.ExecuteAndCommit(MakeEmptyBlock(2))

		result := h.Query(types.PathIssuance, nil)
		if result.Height != 2 {
			t.Errorf("expected query height 2, got %d", result.Height)
		}
	})

	t.Run("tx_outcome_indices", func(t *testing.T) {
		h := NewHarness(t, factory())
		h.GenesisDefault()

		outcome := h.ExecuteAndCommit(MakeBlock(1, garbage...))
		if len(outcome.TxOutcomes) != len(garbage) {
			t.Fatalf("expected %d tx outcomes, got %d", len(garbage), len(outcome.TxOutcomes))
		}
		for i, o := range outcome.TxOutcomes {
			if o.Index != uint32(i) {
				t.Errorf("tx %d: expected index %d, got %d", i, i, o.Index)
			}
			if o.OK() {
				t.Errorf("tx %d: garbage accepted", i)
			}
			if len(o.Events) != 0 {
				t.Errorf("tx %d: failed tx emitted events", i)
			}
		}
	})

	t.Run("commit_without_execute_rejected", func(t *testing.T) {
		h := NewHarness(t, factory())
		h.GenesisDefault()
		_, err := h.Conn().Commit(context.Background())
		if _, ok := airdrop.IsSequence(err); !ok {
			t.Fatalf("expected SequenceError, got %v", err)
		}
	})
}
