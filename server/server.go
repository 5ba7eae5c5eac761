package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/blockberries/kudos"
	"github.com/blockberries/kudos/types"
)

// ErrHalted is returned by ExecuteBlock once the application has
// requested a halt.
var ErrHalted = errors.New("kudos: application halted")

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for capability warnings and halts.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l.With().Str("component", "server").Logger() }
}

// Server wraps an application with lifecycle enforcement and
// capability routing. The host interacts with the application
// exclusively through this server.
type Server struct {
	app   kudos.Lifecycle
	guard *LifecycleGuard
	caps  types.Capabilities
	log   zerolog.Logger

	// Optional interfaces (nil if not supported).
	stateSync kudos.StateSync
	simulator kudos.Simulator

	// Last block outcome (held between ExecuteBlock and Commit).
	mu             sync.Mutex
	lastOutcome    *types.BlockOutcome
	lastExecHeight uint64
	halt           *kudos.HaltError
}

// New creates a new Server wrapping the given application.
func New(app kudos.Lifecycle, opts ...Option) *Server {
	s := &Server{
		app:   app,
		guard: NewLifecycleGuard(),
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	// Pre-discover optional interfaces (validated after handshake).
	s.stateSync, _ = app.(kudos.StateSync)
	s.simulator, _ = app.(kudos.Simulator)
	return s
}

// Handshake performs the startup handshake, validates capability
// declarations, and transitions the state machine to Ready.
func (s *Server) Handshake(ctx context.Context, req types.HandshakeRequest) (types.HandshakeResponse, error) {
	if err := s.guard.BeginHandshake(); err != nil {
		return types.HandshakeResponse{}, err
	}

	resp, err := s.app.Handshake(ctx, req)
	if err != nil {
		s.guard.AbortHandshake()
		return resp, err
	}

	if err := s.discoverCapabilities(resp.Capabilities); err != nil {
		s.guard.AbortHandshake()
		return resp, err
	}

	s.caps = resp.Capabilities
	s.guard.EndHandshake()
	s.log.Info().Str("capabilities", resp.Capabilities.String()).Msg("handshake complete")
	return resp, nil
}

// CheckTx gate-checks a transaction for mempool admission.
// Safe for concurrent use.
func (s *Server) CheckTx(ctx context.Context, tx types.Tx, mctx types.MempoolContext) (types.GateVerdict, error) {
	if err := s.guard.CheckRead("CheckTx"); err != nil {
		return types.GateVerdict{}, err
	}
	return s.app.CheckTx(ctx, tx, mctx)
}

// ExecuteBlock executes a finalized block. A HaltError from the
// application moves the server to Halted; every later ExecuteBlock
// fails with ErrHalted.
func (s *Server) ExecuteBlock(ctx context.Context, block types.FinalizedBlock) (types.BlockOutcome, error) {
	if err := s.guard.BeginExecute(); err != nil {
		if errors.Is(err, ErrHalted) {
			return types.BlockOutcome{}, fmt.Errorf("%w: %v", ErrHalted, s.Halt())
		}
		return types.BlockOutcome{}, err
	}

	outcome, err := s.app.ExecuteBlock(ctx, block)
	if err != nil {
		if h, ok := kudos.IsHalt(err); ok {
			s.mu.Lock()
			s.halt = h
			s.mu.Unlock()
			s.guard.HaltExecute()
			s.log.Error().Err(err).Uint64("height", block.Height).Msg("application halted")
			return outcome, err
		}
		s.guard.AbortExecute()
		return outcome, err
	}

	s.mu.Lock()
	s.lastOutcome = &outcome
	s.lastExecHeight = block.Height
	s.mu.Unlock()

	s.guard.EndExecute()
	return outcome, nil
}

// Commit persists state changes from the last ExecuteBlock.
func (s *Server) Commit(ctx context.Context) (types.CommitResult, error) {
	if err := s.guard.BeginCommit(); err != nil {
		return types.CommitResult{}, err
	}

	result, err := s.app.Commit(ctx)

	s.mu.Lock()
	s.lastOutcome = nil
	s.mu.Unlock()

	s.guard.EndCommit()
	return result, err
}

// Query reads application state. Safe for concurrent use.
func (s *Server) Query(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error) {
	if err := s.guard.CheckRead("Query"); err != nil {
		return types.StateQueryResult{}, err
	}
	return s.app.Query(ctx, req)
}

// Capabilities returns the application's declared capabilities.
// Only valid after Handshake completes.
func (s *Server) Capabilities() types.Capabilities {
	return s.caps
}

// Halt returns the HaltError that stopped the application, or nil.
func (s *Server) Halt() *kudos.HaltError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.halt
}

// --- Capability-gated optional methods ---

// AvailableSnapshots delegates to StateSync if supported.
func (s *Server) AvailableSnapshots(ctx context.Context) ([]types.SnapshotDescriptor, error) {
	if s.stateSync == nil {
		return nil, fmt.Errorf("kudos: StateSync not supported")
	}
	return s.stateSync.AvailableSnapshots(ctx)
}

// ExportSnapshot delegates to StateSync if supported.
func (s *Server) ExportSnapshot(ctx context.Context, height uint64, format uint32) (<-chan types.SnapshotChunk, *types.SnapshotDescriptor, error) {
	if s.stateSync == nil {
		return nil, nil, fmt.Errorf("kudos: StateSync not supported")
	}
	return s.stateSync.ExportSnapshot(ctx, height, format)
}

// ImportSnapshot delegates to StateSync if supported.
func (s *Server) ImportSnapshot(ctx context.Context, desc types.SnapshotDescriptor, chunks <-chan types.SnapshotChunk) (types.ImportResult, error) {
	if s.stateSync == nil {
		return types.ImportResult{}, fmt.Errorf("kudos: StateSync not supported")
	}
	return s.stateSync.ImportSnapshot(ctx, desc, chunks)
}

// Simulate delegates to Simulator if supported.
// Safe for concurrent use.
func (s *Server) Simulate(ctx context.Context, tx types.Tx) (types.TxOutcome, error) {
	if s.simulator == nil {
		return types.TxOutcome{}, fmt.Errorf("kudos: Simulator not supported")
	}
	if err := s.guard.CheckRead("Simulate"); err != nil {
		return types.TxOutcome{}, err
	}
	return s.simulator.Simulate(ctx, tx)
}

// AsStateSync returns the StateSync interface or nil.
func (s *Server) AsStateSync() kudos.StateSync {
	if s.caps.Has(types.CapStateSync) {
		return s.stateSync
	}
	return nil
}

// AsSimulator returns the Simulator interface or nil.
func (s *Server) AsSimulator() kudos.Simulator {
	if s.caps.Has(types.CapSimulation) {
		return s.simulator
	}
	return nil
}

// LastOutcome returns the most recent BlockOutcome (between
// ExecuteBlock and Commit). Returns nil if no outcome is pending.
func (s *Server) LastOutcome() *types.BlockOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastOutcome
}

// Close is a no-op for the server wrapper.
func (s *Server) Close() error { return nil }

// discoverCapabilities checks which optional interfaces the app
// implements and verifies consistency with declared capabilities.
func (s *Server) discoverCapabilities(declared types.Capabilities) error {
	hasStateSync := s.stateSync != nil
	hasSimulator := s.simulator != nil

	if declared.Has(types.CapStateSync) && !hasStateSync {
		return fmt.Errorf("kudos: app declared CapStateSync but does not implement StateSync")
	}
	if declared.Has(types.CapSimulation) && !hasSimulator {
		return fmt.Errorf("kudos: app declared CapSimulation but does not implement Simulator")
	}

	// Warn (but don't error) if the app implements an interface but didn't declare it.
	if !declared.Has(types.CapStateSync) && hasStateSync {
		s.log.Warn().Str("capability", "StateSync").Msg("app implements capability but did not declare it; it will not be used")
	}
	if !declared.Has(types.CapSimulation) && hasSimulator {
		s.log.Warn().Str("capability", "Simulation").Msg("app implements capability but did not declare it; it will not be used")
	}
	return nil
}
