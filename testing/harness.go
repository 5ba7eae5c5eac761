package kudostest

import (
	"context"
	"testing"
	"time"

	"github.com/blockberries/kudos"
	"github.com/blockberries/kudos/server"
	"github.com/blockberries/kudos/types"
)

// GenesisTime is the genesis time used by DefaultGenesis and MakeBlock.
var GenesisTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// BlockInterval is the spacing between blocks built by MakeBlock.
const BlockInterval = 5 * time.Second

// Harness drives an application through the lifecycle state machine
// and fails the test on any transport-level error.
type Harness struct {
	t   *testing.T
	srv *server.Server
}

// NewHarness creates a test harness wrapping the given application.
func NewHarness(t *testing.T, app kudos.Lifecycle, opts ...server.Option) *Harness {
	t.Helper()
	return &Harness{t: t, srv: server.New(app, opts...)}
}

// Server returns the underlying server for direct access.
func (h *Harness) Server() *server.Server {
	return h.srv
}

// Genesis performs a genesis handshake with the given genesis doc.
func (h *Harness) Genesis(genesis types.GenesisDoc) types.HandshakeResponse {
	h.t.Helper()
	resp, err := h.srv.Handshake(context.Background(), types.HandshakeRequest{
		Genesis: &genesis,
	})
	if err != nil {
		h.t.Fatalf("Handshake (genesis) failed: %v", err)
	}
	return resp
}

// GenesisDefault performs a genesis handshake with DefaultGenesis.
func (h *Harness) GenesisDefault() types.HandshakeResponse {
	h.t.Helper()
	return h.Genesis(DefaultGenesis())
}

// Restart performs a restart handshake at the given block.
func (h *Harness) Restart(block types.BlockID) types.HandshakeResponse {
	h.t.Helper()
	resp, err := h.srv.Handshake(context.Background(), types.HandshakeRequest{
		LastCommitted: &block,
	})
	if err != nil {
		h.t.Fatalf("Handshake (restart) failed: %v", err)
	}
	return resp
}

// ExecuteBlock executes a block without committing.
func (h *Harness) ExecuteBlock(block types.FinalizedBlock) types.BlockOutcome {
	h.t.Helper()
	outcome, err := h.srv.ExecuteBlock(context.Background(), block)
	if err != nil {
		h.t.Fatalf("ExecuteBlock (height=%d) failed: %v", block.Height, err)
	}
	return outcome
}

// Commit commits the last executed block.
func (h *Harness) Commit() types.CommitResult {
	h.t.Helper()
	result, err := h.srv.Commit(context.Background())
	if err != nil {
		h.t.Fatalf("Commit failed: %v", err)
	}
	return result
}

// ExecuteAndCommit executes a block, commits it and returns the outcome.
func (h *Harness) ExecuteAndCommit(block types.FinalizedBlock) types.BlockOutcome {
	h.t.Helper()
	outcome := h.ExecuteBlock(block)
	h.Commit()
	return outcome
}

// MustExecute executes and commits a block and fails the test if any
// of its transactions did not succeed.
func (h *Harness) MustExecute(block types.FinalizedBlock) types.BlockOutcome {
	h.t.Helper()
	outcome := h.ExecuteAndCommit(block)
	for _, o := range outcome.TxOutcomes {
		if !o.OK() {
			h.t.Fatalf("height %d tx %d: code=%d info=%q", block.Height, o.Index, o.Code, o.Info)
		}
	}
	return outcome
}

// CheckTx submits a transaction for mempool gate-checking.
func (h *Harness) CheckTx(tx types.Tx) types.GateVerdict {
	h.t.Helper()
	verdict, err := h.srv.CheckTx(context.Background(), tx, types.MempoolFirstSeen)
	if err != nil {
		h.t.Fatalf("CheckTx failed: %v", err)
	}
	return verdict
}

// RecheckTx re-validates a previously admitted transaction.
func (h *Harness) RecheckTx(tx types.Tx) types.GateVerdict {
	h.t.Helper()
	verdict, err := h.srv.CheckTx(context.Background(), tx, types.MempoolRevalidation)
	if err != nil {
		h.t.Fatalf("RecheckTx failed: %v", err)
	}
	return verdict
}

// Query reads application state at the latest height.
func (h *Harness) Query(path types.QueryPath, data []byte) types.StateQueryResult {
	h.t.Helper()
	result, err := h.srv.Query(context.Background(), types.StateQuery{
		Path: path,
		Data: data,
	})
	if err != nil {
		h.t.Fatalf("Query failed: %v", err)
	}
	return result
}

// MustQuery is Query that also fails the test on a non-zero result code.
func (h *Harness) MustQuery(path types.QueryPath, data []byte) []byte {
	h.t.Helper()
	result := h.Query(path, data)
	if !result.OK() {
		h.t.Fatalf("Query %s: code=%d info=%q", path, result.Code, result.Info)
	}
	return result.Value
}

// Simulate dry-runs tx through the Simulator capability.
func (h *Harness) Simulate(tx types.Tx) types.TxOutcome {
	h.t.Helper()
	outcome, err := h.srv.Simulate(context.Background(), tx)
	if err != nil {
		h.t.Fatalf("Simulate failed: %v", err)
	}
	return outcome
}

// MustAcceptTx asserts that a transaction is accepted.
func (h *Harness) MustAcceptTx(tx types.Tx) {
	h.t.Helper()
	v := h.CheckTx(tx)
	if !v.Accepted() {
		h.t.Fatalf("expected tx accepted, got code=%d info=%q", v.Code, v.Info)
	}
}

// MustRejectTx asserts that a transaction is rejected.
func (h *Harness) MustRejectTx(tx types.Tx) {
	h.t.Helper()
	v := h.CheckTx(tx)
	if v.Accepted() {
		h.t.Fatal("expected tx rejected, got accepted")
	}
}

// --- Helper factories ---

// DefaultGenesis returns a genesis document with no application state.
// It suits mocks; the kudos application needs GenesisWith.
func DefaultGenesis() types.GenesisDoc {
	return GenesisWith(nil)
}

// GenesisWith returns the default genesis document carrying appState.
func GenesisWith(appState []byte) types.GenesisDoc {
	return types.GenesisDoc{
		ChainID:       "test-chain",
		GenesisTime:   types.TimeToTimestamp(GenesisTime),
		InitialHeight: 1,
		AppState:      appState,
	}
}

// MakeBlock creates a FinalizedBlock at the given height, BlockInterval
// apart from GenesisTime per height.
func MakeBlock(height uint64, txs ...types.Tx) types.FinalizedBlock {
	return MakeBlockAt(height, GenesisTime.Add(time.Duration(height)*BlockInterval), txs...)
}

// MakeBlockAt creates a FinalizedBlock with an explicit block time.
func MakeBlockAt(height uint64, at time.Time, txs ...types.Tx) types.FinalizedBlock {
	return types.FinalizedBlock{
		Height: height,
		Time:   types.TimeToTimestamp(at),
		Txs:    txs,
	}
}

// MakeEmptyBlock creates an empty FinalizedBlock at the given height.
func MakeEmptyBlock(height uint64) types.FinalizedBlock {
	return MakeBlock(height)
}
