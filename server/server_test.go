package server

import (
	"context"
	"errors"
	"testing"

	"github.com/blockberries/kudos"
	"github.com/blockberries/kudos/types"
)

// testApp is a minimal mock that implements every interface
// to avoid an import cycle with kudos/testing.
type testApp struct {
	caps           types.Capabilities
	handshakeCalls int
	executeErr     error
}

var (
	_ kudos.Lifecycle = (*testApp)(nil)
	_ kudos.StateSync = (*testApp)(nil)
	_ kudos.Simulator = (*testApp)(nil)
)

func (a *testApp) Handshake(_ context.Context, _ types.HandshakeRequest) (types.HandshakeResponse, error) {
	a.handshakeCalls++
	return types.HandshakeResponse{Capabilities: a.caps}, nil
}

func (a *testApp) CheckTx(_ context.Context, _ types.Tx, _ types.MempoolContext) (types.GateVerdict, error) {
	return types.GateVerdict{Code: 0}, nil
}

func (a *testApp) ExecuteBlock(_ context.Context, block types.FinalizedBlock) (types.BlockOutcome, error) {
	if a.executeErr != nil {
		return types.BlockOutcome{}, a.executeErr
	}
	outcomes := make([]types.TxOutcome, len(block.Txs))
	for i := range block.Txs {
		outcomes[i] = types.TxOutcome{Index: uint32(i), Code: 0}
	}
	return types.BlockOutcome{
		TxOutcomes: outcomes,
		AppHash:    types.AppHash{0x01},
	}, nil
}

func (a *testApp) Commit(_ context.Context) (types.CommitResult, error) {
	return types.CommitResult{}, nil
}

func (a *testApp) Query(_ context.Context, _ types.StateQuery) (types.StateQueryResult, error) {
	return types.StateQueryResult{}, nil
}

func (a *testApp) AvailableSnapshots(_ context.Context) ([]types.SnapshotDescriptor, error) {
	return nil, nil
}

func (a *testApp) ExportSnapshot(_ context.Context, height uint64, format uint32) (<-chan types.SnapshotChunk, *types.SnapshotDescriptor, error) {
	ch := make(chan types.SnapshotChunk)
	close(ch)
	return ch, &types.SnapshotDescriptor{Height: height, Format: format}, nil
}

func (a *testApp) ImportSnapshot(_ context.Context, _ types.SnapshotDescriptor, chunks <-chan types.SnapshotChunk) (types.ImportResult, error) {
	for range chunks {
	}
	ah := types.AppHash{0x01}
	return types.ImportResult{Status: types.ImportOK, AppHash: &ah}, nil
}

func (a *testApp) Simulate(_ context.Context, _ types.Tx) (types.TxOutcome, error) {
	return types.TxOutcome{Code: 0}, nil
}

// lifecycleOnly hides every optional interface of the wrapped app.
type lifecycleOnly struct{ kudos.Lifecycle }

func genesis(t *testing.T, srv *Server) {
	t.Helper()
	_, err := srv.Handshake(context.Background(), types.HandshakeRequest{
		Genesis: &types.GenesisDoc{ChainID: "test"},
	})
	if err != nil {
		t.Fatalf("handshake failed: %v", err)
	}
}

// --- Tests ---

func TestServer_Handshake_Genesis(t *testing.T) {
	app := &testApp{}
	srv := New(app)

	resp, err := srv.Handshake(context.Background(), types.HandshakeRequest{
		Genesis: &types.GenesisDoc{ChainID: "test"},
	})
	if err != nil {
		t.Fatalf("handshake failed: %v", err)
	}
	if resp.Capabilities != 0 {
		t.Errorf("expected no capabilities, got %s", resp.Capabilities)
	}
	if app.handshakeCalls != 1 {
		t.Errorf("expected 1 handshake call, got %d", app.handshakeCalls)
	}
}

func TestServer_Handshake_WithCapabilities(t *testing.T) {
	app := &testApp{caps: types.CapSimulation}
	srv := New(app)

	resp, err := srv.Handshake(context.Background(), types.HandshakeRequest{
		Genesis: &types.GenesisDoc{ChainID: "test"},
	})
	if err != nil {
		t.Fatalf("handshake failed: %v", err)
	}
	if !resp.Capabilities.Has(types.CapSimulation) {
		t.Error("expected CapSimulation")
	}
	if resp.Capabilities.Has(types.CapStateSync) {
		t.Error("unexpected CapStateSync")
	}
}

func TestServer_Handshake_UndeclaredImplementation(t *testing.T) {
	srv := New(lifecycleOnly{&testApp{caps: types.CapStateSync}})

	_, err := srv.Handshake(context.Background(), types.HandshakeRequest{
		Genesis: &types.GenesisDoc{ChainID: "test"},
	})
	if err == nil {
		t.Fatal("expected error when declaring a capability the app does not implement")
	}
	if srv.guard.State() != "Init" {
		t.Errorf("expected guard back in Init, got %s", srv.guard.State())
	}
}

func TestServer_ExecuteCommitCycle(t *testing.T) {
	srv := New(&testApp{})
	genesis(t, srv)

	block := types.FinalizedBlock{
		Height: 1,
		Txs:    []types.Tx{{0x01}},
	}

	outcome, err := srv.ExecuteBlock(context.Background(), block)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if len(outcome.TxOutcomes) != 1 {
		t.Errorf("expected 1 tx outcome, got %d", len(outcome.TxOutcomes))
	}

	if srv.LastOutcome() == nil {
		t.Error("expected non-nil LastOutcome between execute and commit")
	}

	_, err = srv.Commit(context.Background())
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	if srv.LastOutcome() != nil {
		t.Error("expected nil LastOutcome after commit")
	}
}

func TestServer_ExecuteErrorAllowsRetry(t *testing.T) {
	app := &testApp{executeErr: errors.New("transient")}
	srv := New(app)
	genesis(t, srv)

	if _, err := srv.ExecuteBlock(context.Background(), types.FinalizedBlock{Height: 1}); err == nil {
		t.Fatal("expected execute error")
	}
	app.executeErr = nil
	if _, err := srv.ExecuteBlock(context.Background(), types.FinalizedBlock{Height: 1}); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
}

func TestServer_HaltStopsExecution(t *testing.T) {
	app := &testApp{executeErr: kudos.NewHaltError(3, "corrupt state", errors.New("bad record"))}
	srv := New(app)
	genesis(t, srv)

	_, err := srv.ExecuteBlock(context.Background(), types.FinalizedBlock{Height: 3})
	if _, ok := kudos.IsHalt(err); !ok {
		t.Fatalf("expected HaltError, got %v", err)
	}
	if h := srv.Halt(); h == nil || h.Height != 3 {
		t.Fatalf("expected recorded halt at height 3, got %v", h)
	}

	app.executeErr = nil
	_, err = srv.ExecuteBlock(context.Background(), types.FinalizedBlock{Height: 3})
	if !errors.Is(err, ErrHalted) {
		t.Fatalf("expected ErrHalted, got %v", err)
	}

	// Queries still work after a halt.
	if _, err := srv.Query(context.Background(), types.StateQuery{Path: "/round/current"}); err != nil {
		t.Fatalf("query after halt failed: %v", err)
	}
}

func TestServer_CheckTxConcurrent(t *testing.T) {
	srv := New(&testApp{})
	genesis(t, srv)

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			_, err := srv.CheckTx(context.Background(), types.Tx{0x01}, types.MempoolFirstSeen)
			if err != nil {
				t.Errorf("CheckTx error: %v", err)
			}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestServer_CapabilityGating(t *testing.T) {
	srv := New(&testApp{})
	genesis(t, srv)

	if srv.AsStateSync() != nil {
		t.Error("expected nil StateSync when not declared")
	}
	if srv.AsSimulator() != nil {
		t.Error("expected nil Simulator when not declared")
	}
}

func TestServer_CapabilityFullAccess(t *testing.T) {
	srv := New(&testApp{caps: types.CapStateSync | types.CapSimulation})
	genesis(t, srv)

	if srv.AsStateSync() == nil {
		t.Error("expected non-nil StateSync")
	}
	if srv.AsSimulator() == nil {
		t.Error("expected non-nil Simulator")
	}
}

func TestServer_OutOfOrderCallsReturnErrors(t *testing.T) {
	srv := New(&testApp{caps: types.CapSimulation})

	if _, err := srv.Query(context.Background(), types.StateQuery{Path: "/round/current"}); !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder for query before handshake, got %v", err)
	}
	if _, err := srv.Simulate(context.Background(), types.Tx{0x01}); !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder for simulate before handshake, got %v", err)
	}

	genesis(t, srv)
	if _, err := srv.Commit(context.Background()); !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder for commit without execute, got %v", err)
	}
	if _, err := srv.Handshake(context.Background(), types.HandshakeRequest{}); !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder for second handshake, got %v", err)
	}

	// The guard is untouched by rejected calls.
	if _, err := srv.ExecuteBlock(context.Background(), types.FinalizedBlock{Height: 1}); err != nil {
		t.Fatalf("execute after rejected calls: %v", err)
	}
	if _, err := srv.Commit(context.Background()); err != nil {
		t.Fatalf("commit: %v", err)
	}
}
