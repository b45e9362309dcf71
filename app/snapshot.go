package app

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/blockberries/airdrop/state"
	"github.com/blockberries/airdrop/types"
)

const snapshotChunkSize = 64 * 1024

// AvailableSnapshots offers the committed state. Nothing is offered
// before the first block.
func (a *App) AvailableSnapshots(_ context.Context) ([]types.SnapshotDescriptor, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.current.Height == 0 {
		return nil, nil
	}
	data, err := a.current.Encode()
	if err != nil {
		return nil, err
	}
	return []types.SnapshotDescriptor{describe(a.current.Height, data)}, nil
}

func (a *App) ExportSnapshot(ctx context.Context, height uint64, format uint32) (<-chan types.SnapshotChunk, *types.SnapshotDescriptor, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if format != types.SnapshotFormatState {
		return nil, nil, fmt.Errorf("unsupported snapshot format %d", format)
	}
	if a.current.Height != height {
		return nil, nil, fmt.Errorf("snapshot at height %d not available (current: %d)", height, a.current.Height)
	}
	data, err := a.current.Encode()
	if err != nil {
		return nil, nil, err
	}
	desc := describe(height, data)

	ch := make(chan types.SnapshotChunk, desc.Chunks)
	go func() {
		defer close(ch)
		for i := uint32(0); i < desc.Chunks; i++ {
			start := int(i) * snapshotChunkSize
			end := min(start+snapshotChunkSize, len(data))
			select {
			case ch <- types.SnapshotChunk{Index: i, Data: data[start:end]}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, &desc, nil
}

func (a *App) ImportSnapshot(_ context.Context, desc types.SnapshotDescriptor, chunks <-chan types.SnapshotChunk) (types.ImportResult, error) {
	if desc.Format != types.SnapshotFormatState {
		for range chunks {
		}
		return types.ImportResult{
			Status: types.ImportReject,
			Reason: fmt.Sprintf("unsupported format %d", desc.Format),
		}, nil
	}

	received := make(map[uint32][]byte)
	for c := range chunks {
		if c.Index < desc.Chunks {
			received[c.Index] = c.Data
		}
	}
	if uint32(len(received)) != desc.Chunks {
		var missing []uint32
		for i := uint32(0); i < desc.Chunks; i++ {
			if _, ok := received[i]; !ok {
				missing = append(missing, i)
			}
		}
		return types.ImportResult{Status: types.ImportRetryChunks, RetryIndices: missing}, nil
	}

	var full []byte
	for i := uint32(0); i < desc.Chunks; i++ {
		full = append(full, received[i]...)
	}
	if types.Hash(sha256.Sum256(full)) != desc.Hash {
		return types.ImportResult{Status: types.ImportReject, Reason: "snapshot hash mismatch"}, nil
	}

	s, err := state.Decode(full)
	if err != nil {
		return types.ImportResult{Status: types.ImportReject, Reason: err.Error()}, nil
	}
	if s.Height != desc.Height {
		return types.ImportResult{
			Status: types.ImportReject,
			Reason: fmt.Sprintf("snapshot state is at height %d, descriptor says %d", s.Height, desc.Height),
		}, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current.ChainID != "" && s.ChainID != a.current.ChainID {
		return types.ImportResult{
			Status: types.ImportReject,
			Reason: fmt.Sprintf("snapshot is for chain %q", s.ChainID),
		}, nil
	}
	h, err := s.AppHash()
	if err != nil {
		return types.ImportResult{}, err
	}
	if a.store != nil {
		if err := a.store.Replace(s, h); err != nil {
			return types.ImportResult{}, fmt.Errorf("persist snapshot: %w", err)
		}
	}
	a.current = s
	a.staged = nil
	a.stagedDrops = nil
	a.metrics.Committed(s.Height, uint64(s.Bank.TotalIssuance()), s.Cooldowns.Len(), s.Bank.Len())
	logger().Infow("snapshot imported", "height", s.Height, "chunks", desc.Chunks)
	return types.ImportResult{Status: types.ImportOK, AppHash: &h}, nil
}

func describe(height uint64, data []byte) types.SnapshotDescriptor {
	return types.SnapshotDescriptor{
		Height: height,
		Format: types.SnapshotFormatState,
		Chunks: uint32((len(data) + snapshotChunkSize - 1) / snapshotChunkSize),
		Hash:   types.Hash(sha256.Sum256(data)),
	}
}
