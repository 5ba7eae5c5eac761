package server

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func mustNil(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func openGuard(t *testing.T) *LifecycleGuard {
	t.Helper()
	g := NewLifecycleGuard()
	mustNil(t, g.BeginHandshake())
	g.EndHandshake()
	return g
}

func cycle(t *testing.T, g *LifecycleGuard) {
	t.Helper()
	mustNil(t, g.BeginExecute())
	g.EndExecute()
	mustNil(t, g.BeginCommit())
	g.EndCommit()
}

func expectOrderError(t *testing.T, err error, call string) {
	t.Helper()
	var oe *OrderError
	if !errors.As(err, &oe) {
		t.Fatalf("expected OrderError, got %v", err)
	}
	if oe.Call != call {
		t.Errorf("expected call %s, got %s", call, oe.Call)
	}
	if !errors.Is(err, ErrOutOfOrder) {
		t.Error("OrderError must wrap ErrOutOfOrder")
	}
}

func TestLifecycleGuard_HappyPath(t *testing.T) {
	g := openGuard(t)
	if !g.IsReady() {
		t.Fatal("expected Ready after handshake")
	}
	cycle(t, g)
	cycle(t, g)
	if !g.IsReady() {
		t.Fatalf("expected Ready after two cycles, got %s", g.State())
	}
}

func TestLifecycleGuard_ReadsNeedHandshake(t *testing.T) {
	g := NewLifecycleGuard()
	expectOrderError(t, g.CheckRead("Query"), "Query")

	// Still closed while the handshake is in flight.
	mustNil(t, g.BeginHandshake())
	expectOrderError(t, g.CheckRead("CheckTx"), "CheckTx")

	g.EndHandshake()
	mustNil(t, g.CheckRead("CheckTx"))
}

func TestLifecycleGuard_OutOfOrder(t *testing.T) {
	t.Run("double handshake", func(t *testing.T) {
		g := openGuard(t)
		expectOrderError(t, g.BeginHandshake(), "Handshake")
	})
	t.Run("commit without execute", func(t *testing.T) {
		g := openGuard(t)
		expectOrderError(t, g.BeginCommit(), "Commit")
		if !g.IsReady() {
			t.Fatalf("rejected commit must not move the guard, got %s", g.State())
		}
	})
	t.Run("execute twice", func(t *testing.T) {
		g := openGuard(t)
		mustNil(t, g.BeginExecute())
		g.EndExecute()
		expectOrderError(t, g.BeginExecute(), "ExecuteBlock")
		mustNil(t, g.BeginCommit())
		g.EndCommit()
	})
	t.Run("execute before handshake", func(t *testing.T) {
		g := NewLifecycleGuard()
		expectOrderError(t, g.BeginExecute(), "ExecuteBlock")
	})
}

func TestLifecycleGuard_AbortExecute(t *testing.T) {
	g := openGuard(t)
	mustNil(t, g.BeginExecute())
	g.AbortExecute()
	if !g.IsReady() {
		t.Fatal("expected Ready after failed execute")
	}
	cycle(t, g)
}

func TestLifecycleGuard_AbortHandshake(t *testing.T) {
	g := NewLifecycleGuard()
	mustNil(t, g.BeginHandshake())
	g.AbortHandshake()
	if g.State() != "Init" {
		t.Fatalf("expected Init, got %s", g.State())
	}
	mustNil(t, g.BeginHandshake())
	g.EndHandshake()
	if !g.IsReady() {
		t.Fatal("expected Ready after successful retry")
	}
}

func TestLifecycleGuard_Halt(t *testing.T) {
	g := openGuard(t)
	mustNil(t, g.BeginExecute())
	g.HaltExecute()

	if !g.IsHalted() || g.State() != "Halted" {
		t.Fatalf("expected Halted, got %s", g.State())
	}
	mustNil(t, g.CheckRead("Query"))

	if err := g.BeginExecute(); !errors.Is(err, ErrHalted) {
		t.Fatalf("expected ErrHalted, got %v", err)
	}
	expectOrderError(t, g.BeginCommit(), "Commit")
}

func TestLifecycleGuard_ExecuteWaitsForCommit(t *testing.T) {
	g := openGuard(t)
	mustNil(t, g.BeginExecute())
	g.EndExecute()
	mustNil(t, g.BeginCommit())

	var wg sync.WaitGroup
	wg.Add(1)
	started := make(chan struct{})
	var execErr error
	go func() {
		defer wg.Done()
		close(started)
		execErr = g.BeginExecute()
		if execErr == nil {
			g.AbortExecute()
		}
	}()

	<-started
	time.Sleep(10 * time.Millisecond)
	g.EndCommit()
	wg.Wait()

	mustNil(t, execErr)
	if !g.IsReady() {
		t.Fatalf("expected Ready, got %s", g.State())
	}
}

func TestPhase_String(t *testing.T) {
	if got := phase(42).String(); got != "unknown(42)" {
		t.Errorf("unexpected %q", got)
	}
	if got := phaseCommitting.String(); got != "Committing" {
		t.Errorf("unexpected %q", got)
	}
}
