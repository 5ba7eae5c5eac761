package kudostest

import (
	"context"
	"sync"
	"testing"

	"github.com/blockberries/kudos"
	"github.com/blockberries/kudos/types"
)

// RunComplianceSuite checks the lifecycle contract of an application:
// genesis, execute/commit cycles, determinism across instances,
// concurrent reads and restart reporting.
//
// factory must return a fresh application for every call. genesis is
// the document handed to each genesis handshake.
func RunComplianceSuite(t *testing.T, factory func() kudos.Lifecycle, genesis types.GenesisDoc) {
	t.Helper()

	start := func(t *testing.T) *Harness {
		h := NewHarness(t, factory())
		h.Genesis(genesis)
		return h
	}
	garbage := types.Tx{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}

	t.Run("genesis_handshake", func(t *testing.T) {
		resp := NewHarness(t, factory()).Genesis(genesis)
		if resp.LastBlock != nil {
			t.Error("genesis handshake should return nil LastBlock")
		}
		if resp.AppHash == nil {
			t.Error("genesis handshake should return a non-nil AppHash")
		}
	})

	t.Run("execute_commit_cycle", func(t *testing.T) {
		h := start(t)
		for i := uint64(1); i <= 5; i++ {
			outcome := h.ExecuteAndCommit(MakeEmptyBlock(i))
			if outcome.AppHash == (types.AppHash{}) {
				t.Errorf("height %d: zero app hash", i)
			}
		}
	})

	t.Run("empty_blocks_deterministic", func(t *testing.T) {
		h1, h2 := start(t), start(t)
		for i := uint64(1); i <= 3; i++ {
			block := MakeEmptyBlock(i)
			o1 := h1.ExecuteAndCommit(block)
			o2 := h2.ExecuteAndCommit(block)
			if o1.AppHash != o2.AppHash {
				t.Errorf("height %d: non-deterministic: %x != %x", i, o1.AppHash, o2.AppHash)
			}
		}
	})

	t.Run("height_changes_app_hash", func(t *testing.T) {
		h := start(t)
		o1 := h.ExecuteAndCommit(MakeEmptyBlock(1))
		o2 := h.ExecuteAndCommit(MakeEmptyBlock(2))
		if o1.AppHash == o2.AppHash {
			t.Error("expected app hash to change with height")
		}
	})

	t.Run("deterministic_with_txs", func(t *testing.T) {
		h1, h2 := start(t), start(t)
		block := MakeBlock(1, garbage)
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
		h := start(t)
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := h.Server().CheckTx(context.Background(), garbage, types.MempoolFirstSeen); err != nil {
					t.Errorf("concurrent CheckTx failed: %v", err)
				}
			}()
		}
		wg.Wait()
	})

	t.Run("concurrent_query_during_execute", func(t *testing.T) {
		h := start(t)
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := h.Server().Query(context.Background(), types.StateQuery{Path: "/unknown"}); err != nil {
					t.Errorf("concurrent Query failed: %v", err)
				}
			}()
		}
		h.ExecuteAndCommit(MakeEmptyBlock(1))
		wg.Wait()
	})

	t.Run("query_returns_height", func(t *testing.T) {
		h := start(t)
		h.ExecuteAndCommit(MakeEmptyBlock(1))
		h.ExecuteAndCommit(MakeEmptyBlock(2))

		if result := h.Query("/unknown", nil); result.Height != 2 {
			t.Errorf("query height should be 2 after two commits, got %d", result.Height)
		}
	})

	t.Run("query_ignores_uncommitted_block", func(t *testing.T) {
		h := start(t)
		h.ExecuteAndCommit(MakeEmptyBlock(1))
		h.ExecuteBlock(MakeEmptyBlock(2))
		if result := h.Query("/unknown", nil); result.Height != 1 {
			t.Errorf("query must see committed height 1, got %d", result.Height)
		}
		h.Commit()
	})

	t.Run("tx_outcome_indices", func(t *testing.T) {
		h := start(t)
		txs := []types.Tx{
			{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
			{0x02, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
			{0x03, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
		}
		outcome := h.ExecuteAndCommit(MakeBlock(1, txs...))
		if len(outcome.TxOutcomes) != 3 {
			t.Fatalf("expected 3 tx outcomes, got %d", len(outcome.TxOutcomes))
		}
		for i, o := range outcome.TxOutcomes {
			if o.Index != uint32(i) {
				t.Errorf("tx %d: expected index %d, got %d", i, i, o.Index)
			}
		}
	})

	t.Run("restart_reports_last_commit", func(t *testing.T) {
		app := factory()
		h := NewHarness(t, app)
		h.Genesis(genesis)
		h.ExecuteAndCommit(MakeEmptyBlock(1))
		last := h.ExecuteAndCommit(MakeEmptyBlock(2))

		resp := NewHarness(t, app).Restart(types.BlockID{Height: 2})
		if resp.LastBlock == nil || resp.LastBlock.Height != 2 {
			t.Fatalf("expected restart at height 2, got %+v", resp.LastBlock)
		}
		if resp.AppHash == nil || *resp.AppHash != last.AppHash {
			t.Fatalf("restart app hash %v, want %x", resp.AppHash, last.AppHash)
		}
	})
}
