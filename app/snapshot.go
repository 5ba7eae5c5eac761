package app

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/kudos/store"
	"github.com/blockberries/kudos/types"
)

const (
	snapshotFormat   uint32 = 1
	defaultChunkSize        = 64 * 1024 // 64 KiB per chunk
)

// snapshotPayload is the full store, in key order.
type snapshotPayload struct {
	Height uint64       `cramberry:"1"`
	Pairs  []store.Pair `cramberry:"2"`
}

func (app *App) snapshotData() ([]byte, error) {
	data, err := cramberry.Marshal(snapshotPayload{Height: app.height, Pairs: store.Dump(app.store)})
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

func (app *App) describe(data []byte) types.SnapshotDescriptor {
	size := uint32(app.chunkSize)
	return types.SnapshotDescriptor{
		Height: app.height,
		Format: snapshotFormat,
		Chunks: (uint32(len(data)) + size - 1) / size,
		Hash:   types.Hash(sha256.Sum256(data)),
	}
}

func (app *App) AvailableSnapshots(_ context.Context) ([]types.SnapshotDescriptor, error) {
	app.mu.RLock()
	defer app.mu.RUnlock()

	if app.height == 0 {
		return nil, nil
	}
	data, err := app.snapshotData()
	if err != nil {
		return nil, err
	}
	return []types.SnapshotDescriptor{app.describe(data)}, nil
}

func (app *App) ExportSnapshot(_ context.Context, height uint64, format uint32) (<-chan types.SnapshotChunk, *types.SnapshotDescriptor, error) {
	app.mu.RLock()
	defer app.mu.RUnlock()

	if format != snapshotFormat {
		return nil, nil, fmt.Errorf("unsupported snapshot format %d", format)
	}
	if app.height != height {
		return nil, nil, fmt.Errorf("snapshot at height %d not available (current: %d)", height, app.height)
	}
	data, err := app.snapshotData()
	if err != nil {
		return nil, nil, err
	}
	desc := app.describe(data)
	size := uint32(app.chunkSize)

	ch := make(chan types.SnapshotChunk, desc.Chunks)
	go func() {
		defer close(ch)
		for i := uint32(0); i < desc.Chunks; i++ {
			start := i * size
			end := min(start+size, uint32(len(data)))
			ch <- types.SnapshotChunk{Index: i, Data: data[start:end]}
		}
	}()
	return ch, &desc, nil
}

func (app *App) ImportSnapshot(_ context.Context, descriptor types.SnapshotDescriptor, chunks <-chan types.SnapshotChunk) (types.ImportResult, error) {
	if descriptor.Format != snapshotFormat {
		return types.ImportRejected("unsupported format %d", descriptor.Format), nil
	}

	received := make(map[uint32][]byte)
	for chunk := range chunks {
		received[chunk.Index] = chunk.Data
	}
	var missing []uint32
	for i := uint32(0); i < descriptor.Chunks; i++ {
		if _, ok := received[i]; !ok {
			missing = append(missing, i)
		}
	}
	if len(missing) > 0 {
		return types.ImportRetry(missing), nil
	}

	var full []byte
	for i := uint32(0); i < descriptor.Chunks; i++ {
		full = append(full, received[i]...)
	}
	if types.Hash(sha256.Sum256(full)) != descriptor.Hash {
		return types.ImportRejected("snapshot hash mismatch"), nil
	}

	var payload snapshotPayload
	if err := cramberry.Unmarshal(full, &payload); err != nil {
		return types.ImportRejected("unmarshal snapshot: %v", err), nil
	}
	if payload.Height != descriptor.Height {
		return types.ImportRejected("payload height %d does not match descriptor height %d", payload.Height, descriptor.Height), nil
	}
	kv := store.Load(payload.Pairs)
	if _, err := loadParams(kv); err != nil {
		return types.ImportRejected("%v", err), nil
	}
	appHash := types.AppHash(store.Hash(kv))

	app.mu.Lock()
	app.store = kv
	app.height = payload.Height
	app.appHash = appHash
	app.staged = nil
	app.mu.Unlock()

	app.log.Info().Uint64("height", payload.Height).Int("keys", kv.Len()).Msg("snapshot imported")
	return types.ImportAccepted(appHash), nil
}
