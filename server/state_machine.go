// Package server provides the host-side wrapper that enforces the
// application lifecycle and routes capability-gated calls.
package server

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrOutOfOrder is wrapped by every OrderError.
var ErrOutOfOrder = errors.New("kudos: call out of order")

// OrderError reports a lifecycle call made in the wrong phase.
type OrderError struct {
	Call     string
	Phase    string
	Expected string
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("kudos: %s called in phase %s (expected %s)", e.Call, e.Phase, e.Expected)
}

func (e *OrderError) Unwrap() error { return ErrOutOfOrder }

// phase is a point in the block lifecycle.
type phase uint32

const (
	// Waiting for Handshake.
	phaseInit phase = iota
	// Handshake done; reads and the next ExecuteBlock are allowed.
	phaseReady
	phaseExecuting
	// A block is staged; only Commit may follow.
	phaseExecuted
	phaseCommitting
	// The application requested a halt. Reads only.
	phaseHalted
)

var phaseNames = [...]string{
	phaseInit:       "Init",
	phaseReady:      "Ready",
	phaseExecuting:  "Executing",
	phaseExecuted:   "Executed",
	phaseCommitting: "Committing",
	phaseHalted:     "Halted",
}

func (p phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("unknown(%d)", uint32(p))
}

// LifecycleGuard orders the sequential lifecycle calls. ExecuteBlock
// and Commit are serialized; reads only need a completed handshake.
type LifecycleGuard struct {
	phase  atomic.Uint32
	seqMu  sync.Mutex
	opened atomic.Bool
}

// NewLifecycleGuard returns a guard waiting for Handshake.
func NewLifecycleGuard() *LifecycleGuard {
	return &LifecycleGuard{}
}

// State names the current phase.
func (g *LifecycleGuard) State() string {
	return g.current().String()
}

func (g *LifecycleGuard) current() phase { return phase(g.phase.Load()) }

func (g *LifecycleGuard) orderError(call string, expected phase) error {
	return &OrderError{Call: call, Phase: g.current().String(), Expected: expected.String()}
}

// BeginHandshake moves Init to Ready.
func (g *LifecycleGuard) BeginHandshake() error {
	if !g.phase.CompareAndSwap(uint32(phaseInit), uint32(phaseReady)) {
		return g.orderError("Handshake", phaseInit)
	}
	return nil
}

// EndHandshake opens the guard to reads.
func (g *LifecycleGuard) EndHandshake() {
	g.opened.Store(true)
}

// AbortHandshake returns to Init so the handshake can be retried.
func (g *LifecycleGuard) AbortHandshake() {
	g.phase.Store(uint32(phaseInit))
}

// BeginExecute moves Ready to Executing, waiting for any sequential
// call in flight. On success the caller must finish with EndExecute,
// AbortExecute or HaltExecute.
func (g *LifecycleGuard) BeginExecute() error {
	g.seqMu.Lock()
	if p := g.current(); p != phaseReady {
		g.seqMu.Unlock()
		if p == phaseHalted {
			return ErrHalted
		}
		return g.orderError("ExecuteBlock", phaseReady)
	}
	g.phase.Store(uint32(phaseExecuting))
	return nil
}

// EndExecute stages the block: Executing to Executed.
func (g *LifecycleGuard) EndExecute() { g.release(phaseExecuted) }

// AbortExecute returns to Ready so the block can be retried.
func (g *LifecycleGuard) AbortExecute() { g.release(phaseReady) }

// HaltExecute moves to Halted. There is no way out.
func (g *LifecycleGuard) HaltExecute() { g.release(phaseHalted) }

// BeginCommit moves Executed to Committing. On success the caller must
// finish with EndCommit.
func (g *LifecycleGuard) BeginCommit() error {
	g.seqMu.Lock()
	if g.current() != phaseExecuted {
		g.seqMu.Unlock()
		return g.orderError("Commit", phaseExecuted)
	}
	g.phase.Store(uint32(phaseCommitting))
	return nil
}

// EndCommit returns to Ready.
func (g *LifecycleGuard) EndCommit() { g.release(phaseReady) }

func (g *LifecycleGuard) release(next phase) {
	g.phase.Store(uint32(next))
	g.seqMu.Unlock()
}

// CheckRead reports whether reads are allowed, which is from the end
// of the handshake onwards, halted included.
func (g *LifecycleGuard) CheckRead(call string) error {
	if !g.opened.Load() {
		return &OrderError{Call: call, Phase: g.State(), Expected: "a completed Handshake"}
	}
	return nil
}

// IsHalted reports whether the application requested a halt.
func (g *LifecycleGuard) IsHalted() bool { return g.current() == phaseHalted }

// IsReady reports whether the next block may be executed.
func (g *LifecycleGuard) IsReady() bool { return g.current() == phaseReady }
