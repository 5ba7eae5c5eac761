// Package app hosts the kudos round engine as a block application.
//
// Transactions are cramberry-encoded types.Call envelopes. Every call in
// a block runs against a block-wide store overlay with the block time
// as the clock; Commit folds the overlay into the committed store and
// hands the block's events to the configured sinks.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/algorand/go-deadlock"
	"github.com/rs/zerolog"

	"github.com/blockberries/kudos"
	"github.com/blockberries/kudos/bank"
	"github.com/blockberries/kudos/engine"
	"github.com/blockberries/kudos/nft"
	"github.com/blockberries/kudos/store"
	"github.com/blockberries/kudos/types"
)

// Compile-time interface checks.
var (
	_ kudos.Lifecycle = (*App)(nil)
	_ kudos.StateSync = (*App)(nil)
	_ kudos.Simulator = (*App)(nil)
)

// Result codes for failures outside the engine. Engine failures use
// engine.Code.
const (
	CodeDecodeFailed  uint32 = 200
	CodeInvalidCall   uint32 = 201
	CodeUnknownPath   uint32 = 202
	CodeBadQuery      uint32 = 203
	CodeNotFound      uint32 = 204
	CodeHeightMissing uint32 = 205
)

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(app *App) { app.log = l.With().Str("component", "app").Logger() }
}

// WithSink sets the destination of committed blocks.
func WithSink(s Sink) Option {
	return func(app *App) { app.sink = s }
}

// WithClock sets the clock Simulate runs against. Defaults to the
// system clock.
func WithClock(c engine.Clock) Option {
	return func(app *App) { app.clock = c }
}

// WithSnapshotChunkSize sets the state-sync chunk size in bytes.
func WithSnapshotChunkSize(n int) Option {
	return func(app *App) { app.chunkSize = n }
}

// App is the kudos block application.
type App struct {
	mu      deadlock.RWMutex
	store   *store.MemStore
	height  uint64
	appHash types.AppHash
	staged  *pending

	minter    *nft.Collection
	sink      Sink
	clock     engine.Clock
	chunkSize int
	log       zerolog.Logger
}

// pending is an executed but uncommitted block.
type pending struct {
	txn     *store.Txn
	height  uint64
	time    types.Timestamp
	appHash types.AppHash
	events  []engine.Event
}

// New creates an application with empty state. State is created by the
// genesis handshake or a snapshot import.
func New(opts ...Option) *App {
	app := &App{
		store:     store.NewMemStore(),
		minter:    nft.New(),
		sink:      Sinks(nil),
		clock:     engine.ClockFunc(time.Now),
		chunkSize: defaultChunkSize,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// Height returns the last committed height.
func (app *App) Height() uint64 {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.height
}

func (app *App) newEngine(kv store.KV, p Params, clock engine.Clock, sink engine.EventSink) *engine.Engine {
	return engine.New(kv, bank.New(p.Treasury), app.minter,
		engine.WithConfig(p.EngineConfig()),
		engine.WithClock(clock),
		engine.WithSink(sink),
		engine.WithLogger(app.log),
	)
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func (app *App) Handshake(_ context.Context, req types.HandshakeRequest) (types.HandshakeResponse, error) {
	caps := types.CapStateSync | types.CapSimulation

	if !req.IsGenesis() {
		app.mu.RLock()
		defer app.mu.RUnlock()
		h := app.appHash
		return types.HandshakeResponse{
			LastBlock:    &types.BlockID{Height: app.height},
			AppHash:      &h,
			Capabilities: caps,
		}, nil
	}

	if req.Genesis == nil {
		return types.HandshakeResponse{}, fmt.Errorf("genesis handshake without genesis document")
	}
	gs, err := ParseGenesis(req.Genesis.AppState)
	if err != nil {
		return types.HandshakeResponse{}, err
	}
	kv := store.NewMemStore()
	if err := initGenesis(kv, gs, app.log); err != nil {
		return types.HandshakeResponse{}, err
	}

	app.mu.Lock()
	defer app.mu.Unlock()
	app.store = kv
	app.height = 0
	app.appHash = types.AppHash(store.Hash(kv))
	app.staged = nil
	app.log.Info().
		Str("chain_id", req.Genesis.ChainID).
		Int("admins", len(gs.Admins)).
		Stringer("treasury", gs.Treasury).
		Uint64("endowment", uint64(gs.Endowment)).
		Msg("genesis applied")

	h := app.appHash
	return types.HandshakeResponse{AppHash: &h, Capabilities: caps}, nil
}

func initGenesis(kv store.KV, gs GenesisState, log zerolog.Logger) error {
	p := gs.Params()
	if err := store.SetValue(kv, paramsKey, p); err != nil {
		return err
	}
	if gs.Endowment > 0 {
		if err := bank.Credit(kv, gs.Treasury, gs.Endowment); err != nil {
			return fmt.Errorf("genesis endowment: %w", err)
		}
	}
	for _, b := range gs.Balances {
		if err := bank.Credit(kv, b.Account, b.Amount); err != nil {
			return fmt.Errorf("genesis balance %s: %w", b.Account, err)
		}
	}
	eng := engine.New(kv, bank.New(p.Treasury), nft.New(),
		engine.WithConfig(p.EngineConfig()),
		engine.WithLogger(log),
	)
	if err := eng.Bootstrap(gs.Admins...); err != nil {
		return fmt.Errorf("genesis admins: %w", err)
	}
	return nil
}

func (app *App) CheckTx(_ context.Context, tx types.Tx, _ types.MempoolContext) (types.GateVerdict, error) {
	call, err := types.DecodeCall(tx)
	if err != nil {
		return types.Rejected(CodeDecodeFailed, err), nil
	}
	if err := call.Validate(); err != nil {
		return types.Rejected(CodeInvalidCall, err), nil
	}
	return types.GateVerdict{
		Priority: priority(call.Method),
		Sender:   call.Caller.String(),
	}, nil
}

// priority orders round management ahead of votes so a close lands
// before votes that would fail against a finished round.
func priority(m types.Method) int64 {
	switch m {
	case types.MethodCloseRound, types.MethodOpenRound:
		return 10
	case types.MethodSubmitVote:
		return 1
	default:
		return 5
	}
}

func (app *App) ExecuteBlock(ctx context.Context, block types.FinalizedBlock) (types.BlockOutcome, error) {
	app.mu.RLock()
	txn := store.NewTxn(app.store)
	outcome, events, err := app.executeBlock(ctx, txn, block)
	app.mu.RUnlock()
	if err != nil {
		return types.BlockOutcome{}, err
	}

	app.mu.Lock()
	app.staged = &pending{
		txn:     txn,
		height:  block.Height,
		time:    block.Time,
		appHash: outcome.AppHash,
		events:  events,
	}
	app.mu.Unlock()
	return outcome, nil
}

func (app *App) executeBlock(ctx context.Context, txn *store.Txn, block types.FinalizedBlock) (types.BlockOutcome, []engine.Event, error) {
	p, err := loadParams(txn)
	if err != nil {
		return types.BlockOutcome{}, nil, kudos.NewHaltError(block.Height, "params unreadable", err)
	}
	clock := engine.FixedClock(block.Time)

	outcomes := make([]types.TxOutcome, len(block.Txs))
	var (
		events []engine.Event
		failed int
	)
	for i, tx := range block.Txs {
		outcome, evs, err := app.deliver(ctx, txn, p, clock, uint32(i), tx)
		if err != nil {
			return types.BlockOutcome{}, nil, kudos.NewHaltError(block.Height, "corrupt state", err)
		}
		if !outcome.OK() {
			failed++
		}
		outcomes[i] = outcome
		events = append(events, evs...)
	}
	store.SetUint64(txn, heightKey, block.Height)

	app.log.Info().
		Uint64("height", block.Height).
		Int("txs", len(block.Txs)).
		Int("failed", failed).
		Int("events", len(events)).
		Msg("block executed")

	return types.BlockOutcome{
		TxOutcomes: outcomes,
		AppHash:    types.AppHash(store.Hash(txn)),
	}, events, nil
}

func (app *App) Commit(ctx context.Context) (types.CommitResult, error) {
	app.mu.Lock()
	staged := app.staged
	if staged == nil {
		app.mu.Unlock()
		return types.CommitResult{}, fmt.Errorf("commit without executed block")
	}
	staged.txn.Commit()
	app.height = staged.height
	app.appHash = staged.appHash
	app.staged = nil
	app.mu.Unlock()

	err := app.sink.CommitBlock(ctx, CommittedBlock{
		Height: staged.height,
		Time:   staged.time,
		Events: staged.events,
	})
	if err != nil {
		app.log.Warn().Err(err).Uint64("height", staged.height).Msg("event sink failed")
	}
	app.log.Debug().Uint64("height", staged.height).Msg("block committed")
	return types.CommitResult{}, nil
}

// ---------------------------------------------------------------------------
// Simulator
// ---------------------------------------------------------------------------

func (app *App) Simulate(ctx context.Context, tx types.Tx) (types.TxOutcome, error) {
	app.mu.RLock()
	defer app.mu.RUnlock()

	txn := store.NewTxn(app.store)
	p, err := loadParams(txn)
	if err != nil {
		return types.TxOutcome{}, err
	}
	outcome, _, err := app.deliver(ctx, txn, p, app.clock, 0, tx)
	return outcome, err
}

// ---------------------------------------------------------------------------
// Internal: call execution
// ---------------------------------------------------------------------------

// deliver executes one transaction in its own overlay on kv. The error
// is non-nil only when the store itself is unreadable.
func (app *App) deliver(ctx context.Context, kv store.KV, p Params, clock engine.Clock, index uint32, tx types.Tx) (types.TxOutcome, []engine.Event, error) {
	call, err := types.DecodeCall(tx)
	if err != nil {
		return types.TxOutcome{Index: index, Code: CodeDecodeFailed, Info: err.Error()}, nil, nil
	}
	if err := call.Validate(); err != nil {
		return types.TxOutcome{Index: index, Code: CodeInvalidCall, Info: err.Error()}, nil, nil
	}

	txn := store.NewTxn(kv)
	buf := &engine.Buffer{}
	eng := app.newEngine(txn, p, clock, buf)
	data, err := apply(ctx, eng, txn, p, call, buf)
	if err != nil {
		var corrupt *store.CorruptError
		if errors.As(err, &corrupt) {
			return types.TxOutcome{}, nil, err
		}
		return types.TxOutcome{Index: index, Code: outcomeCode(err), Info: err.Error()}, nil, nil
	}
	txn.Commit()

	evs := buf.Drain()
	return types.TxOutcome{Index: index, Data: data, Events: toTypes(evs)}, evs, nil
}

func apply(ctx context.Context, eng *engine.Engine, kv store.KV, p Params, call types.Call, sink engine.EventSink) ([]byte, error) {
	switch call.Method {
	case types.MethodAddAdmin:
		return nil, eng.AddAdmin(ctx, call.Caller, call.Target)
	case types.MethodRemoveAdmin:
		return nil, eng.RemoveAdmin(ctx, call.Caller, call.Target)
	case types.MethodAddContributor:
		return nil, eng.AddContributor(ctx, call.Caller, call.Target)
	case types.MethodRemoveContributor:
		return nil, eng.RemoveContributor(ctx, call.Caller, call.Target)
	case types.MethodOpenRound:
		id, err := eng.OpenRound(ctx, call.Caller, *call.Round)
		if err != nil {
			return nil, err
		}
		return store.Uint32Bytes(uint32(id)), nil
	case types.MethodCloseRound:
		st, err := eng.CloseRound(ctx, call.Caller)
		if err != nil {
			return nil, err
		}
		return encode(reportOf(st))
	case types.MethodSubmitVote:
		return nil, eng.SubmitVote(ctx, call.Caller, call.Target, *call.Vote)
	case types.MethodFund:
		if err := bank.Move(kv, call.Caller, p.Treasury, call.Amount); err != nil {
			return nil, err
		}
		sink.Emit(Funded{From: call.Caller, Amount: call.Amount})
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown method %s", call.Method)
	}
}

func outcomeCode(err error) uint32 {
	if c := engine.Code(err); c != engine.CodeInternal {
		return c
	}
	switch {
	case errors.Is(err, bank.ErrInsufficientBalance):
		return engine.CodeInsufficientFunds
	case errors.Is(err, bank.ErrBalanceOverflow):
		return engine.CodeOverflow
	}
	return engine.CodeInternal
}
