package app

import (
	"context"
	"testing"
	"time"

	kudostest "github.com/blockberries/kudos/testing"
	"github.com/blockberries/kudos/types"
)

func export(t *testing.T, a *App) (types.SnapshotDescriptor, []types.SnapshotChunk) {
	t.Helper()
	snaps, err := a.AvailableSnapshots(context.Background())
	if err != nil {
		t.Fatalf("AvailableSnapshots: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("expected one snapshot, got %d", len(snaps))
	}
	ch, desc, err := a.ExportSnapshot(context.Background(), snaps[0].Height, snaps[0].Format)
	if err != nil {
		t.Fatalf("ExportSnapshot: %v", err)
	}
	if desc.Hash != snaps[0].Hash || desc.Chunks != snaps[0].Chunks {
		t.Fatalf("descriptor mismatch: %+v vs %+v", *desc, snaps[0])
	}
	var chunks []types.SnapshotChunk
	for c := range ch {
		chunks = append(chunks, c)
	}
	return *desc, chunks
}

func feed(chunks []types.SnapshotChunk) <-chan types.SnapshotChunk {
	ch := make(chan types.SnapshotChunk, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	return ch
}

func TestSnapshot_RoundTrip(t *testing.T) {
	src, h := start(t, WithSnapshotChunkSize(64))
	h.MustExecute(kudostest.MakeBlock(1, AddContributorTx(admin, alice), AddContributorTx(admin, bob)))
	last := h.MustExecute(kudostest.MakeBlock(2, OpenRoundTx(admin, types.RoundParams{
		Name:     "snap",
		Value:    100,
		MaxVotes: 2,
		FinishAt: types.TimeToTimestamp(at(3 * time.Hour)),
	})))

	if snaps, _ := New().AvailableSnapshots(context.Background()); len(snaps) != 0 {
		t.Fatalf("fresh app must not offer snapshots, got %d", len(snaps))
	}

	desc, chunks := export(t, src)
	if len(chunks) < 2 {
		t.Fatalf("expected several 64-byte chunks, got %d", len(chunks))
	}

	dst := New()
	res, err := dst.ImportSnapshot(context.Background(), desc, feed(chunks))
	if err != nil {
		t.Fatalf("ImportSnapshot: %v", err)
	}
	if res.Status != types.ImportOK || *res.AppHash != last.AppHash {
		t.Fatalf("unexpected import result %+v (want hash %x)", res, last.AppHash)
	}
	if dst.Height() != 2 {
		t.Fatalf("restored height %d, want 2", dst.Height())
	}

	// The restored application keeps executing from the snapshot.
	h2 := kudostest.NewHarness(t, dst)
	resp := h2.Restart(types.BlockID{Height: 2})
	if *resp.AppHash != last.AppHash {
		t.Fatalf("restart hash %x, want %x", *resp.AppHash, last.AppHash)
	}
	h2.MustExecute(kudostest.MakeBlockAt(3, at(time.Hour), VoteTx(alice, bob, types.Positive, 2)))
}

func TestSnapshot_ImportRejects(t *testing.T) {
	src, h := start(t, WithSnapshotChunkSize(64))
	h.MustExecute(kudostest.MakeBlock(1, AddContributorTx(admin, alice)))
	desc, chunks := export(t, src)

	t.Run("missing_chunk", func(t *testing.T) {
		res, err := New().ImportSnapshot(context.Background(), desc, feed(chunks[1:]))
		if err != nil {
			t.Fatalf("ImportSnapshot: %v", err)
		}
		if res.Status != types.ImportRetryChunks || len(res.RetryIndices) != 1 || res.RetryIndices[0] != 0 {
			t.Fatalf("unexpected result %+v", res)
		}
	})

	t.Run("corrupt_chunk", func(t *testing.T) {
		bad := append([]types.SnapshotChunk(nil), chunks...)
		data := append([]byte(nil), bad[0].Data...)
		data[0] ^= 0xFF
		bad[0] = types.SnapshotChunk{Index: 0, Data: data}
		res, err := New().ImportSnapshot(context.Background(), desc, feed(bad))
		if err != nil {
			t.Fatalf("ImportSnapshot: %v", err)
		}
		if res.Status != types.ImportReject {
			t.Fatalf("expected reject, got %+v", res)
		}
	})

	t.Run("unknown_format", func(t *testing.T) {
		d := desc
		d.Format = 99
		res, err := New().ImportSnapshot(context.Background(), d, feed(chunks))
		if err != nil {
			t.Fatalf("ImportSnapshot: %v", err)
		}
		if res.Status != types.ImportReject {
			t.Fatalf("expected reject, got %+v", res)
		}
	})

	t.Run("descriptor_height_mismatch", func(t *testing.T) {
		d := desc
		d.Height++
		res, err := New().ImportSnapshot(context.Background(), d, feed(chunks))
		if err != nil {
			t.Fatalf("ImportSnapshot: %v", err)
		}
		if res.Status != types.ImportReject {
			t.Fatalf("expected reject, got %s", res.Status)
		}
	})

	t.Run("wrong_height", func(t *testing.T) {
		if _, _, err := src.ExportSnapshot(context.Background(), 99, desc.Format); err == nil {
			t.Fatal("expected error for unavailable height")
		}
	})
}
