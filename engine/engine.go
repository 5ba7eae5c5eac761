// Package engine implements the kudos round engine: membership and
// roles, per-round reputation bookkeeping, the round state machine,
// vote processing and the close-of-round distribution.
//
// An Engine owns all of its state through a single store.KV. Every
// mutating call runs inside its own store transaction: either the whole
// call takes effect, including ledger transfers and token mints made
// through the transaction-scoped store, or none of it does.
package engine

import (
	"context"
	"time"

	"github.com/algorand/go-deadlock"
	"github.com/rs/zerolog"

	"github.com/blockberries/kudos/store"
	"github.com/blockberries/kudos/types"
)

// Ledger is the host's value-transfer primitive. It debits the
// treasury account the engine pays rounds from.
//
// Implementations must keep their state in the kv they are handed:
// that is the call-scoped transaction, and writing anywhere else
// breaks the all-or-nothing guarantee of CloseRound.
type Ledger interface {
	// Balance returns the treasury balance.
	Balance(ctx context.Context, kv store.KV) (types.Balance, error)
	// Transfer moves amount from the treasury to to.
	Transfer(ctx context.Context, kv store.KV, to types.AccountID, amount types.Balance) error
}

// Minter mints proof-of-contribution tokens. The same kv contract
// as Ledger applies.
type Minter interface {
	MintTo(ctx context.Context, kv store.KV, to types.AccountID, round types.RoundID, tier types.Tier) error
}

// Clock is a monotonically non-decreasing time source.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// FixedClock always reports the same instant. Host applications use it
// to give every call in a block the block's time.
func FixedClock(ts types.Timestamp) Clock {
	t := ts.ToTime()
	return ClockFunc(func() time.Time { return t })
}

// Config holds the engine's tunables.
type Config struct {
	// MinRoundDuration is the shortest time between opening a round
	// and its FinishAt.
	MinRoundDuration time.Duration
	// MinBalance is the treasury balance that must remain after a
	// round's fund is set aside.
	MinBalance types.Balance
	// MaxRoundNameLength bounds Round.Name in bytes.
	MaxRoundNameLength int
	// RemainderToTop hands the integer-division remainder of a
	// distribution to the highest ranked contributor instead of
	// leaving it in the treasury.
	RemainderToTop bool
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		MinRoundDuration:   time.Hour,
		MinBalance:         0,
		MaxRoundNameLength: 64,
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithClock sets the time source. Defaults to the system clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithSink sets the destination of committed events.
func WithSink(s EventSink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l.With().Str("component", "engine").Logger() }
}

// Engine is the round engine aggregate. All calls are serialized by a
// single lock; a call never observes another call half-applied.
type Engine struct {
	mu     deadlock.RWMutex
	kv     store.KV
	ledger Ledger
	minter Minter
	cfg    Config
	clock  Clock
	sink   EventSink
	log    zerolog.Logger
}

// New creates an engine over kv. The ledger pays round funds out of the
// treasury and the minter issues tier tokens.
func New(kv store.KV, ledger Ledger, minter Minter, opts ...Option) *Engine {
	e := &Engine{
		kv:     kv,
		ledger: ledger,
		minter: minter,
		cfg:    DefaultConfig(),
		clock:  ClockFunc(time.Now),
		sink:   NopSink{},
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// MinElapsed returns the minimum duration a round must stay open.
func (e *Engine) MinElapsed() time.Duration { return e.cfg.MinRoundDuration }

func (e *Engine) now() types.Timestamp {
	return types.TimeToTimestamp(e.clock.Now())
}

// exec runs fn against a fresh transaction over the engine store.
// The transaction and the events fn emitted are committed only if fn
// succeeds.
func (e *Engine) exec(op string, caller types.AccountID, fn func(s *state) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	txn := store.NewTxn(e.kv)
	s := &state{kv: txn, now: e.now()}
	if err := fn(s); err != nil {
		e.log.Debug().
			Str("op", op).
			Stringer("caller", caller).
			Err(err).
			Msg("call rejected")
		return err
	}
	txn.Commit()

	for _, ev := range s.events {
		e.sink.Emit(ev)
	}
	e.log.Debug().
		Str("op", op).
		Stringer("caller", caller).
		Int("events", len(s.events)).
		Msg("call applied")
	return nil
}

// view runs fn against the committed store under the read lock.
func (e *Engine) view(fn func(s *state) error) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return fn(&state{kv: e.kv, now: e.now()})
}

// state is the engine's view of one store for the duration of a call.
type state struct {
	kv     store.KV
	now    types.Timestamp
	events []Event
}

func (s *state) emit(ev Event) {
	s.events = append(s.events, ev)
}
