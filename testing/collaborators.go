package kudostest

import (
	"context"
	"errors"
	"sync"

	"github.com/blockberries/kudos/engine"
	"github.com/blockberries/kudos/store"
	"github.com/blockberries/kudos/types"
)

var (
	_ engine.Ledger    = (*MockLedger)(nil)
	_ engine.Minter    = (*MockMinter)(nil)
	_ engine.EventSink = (*RecordingSink)(nil)
)

// ErrMockInsufficient is returned by MockLedger when the treasury
// cannot cover a transfer.
var ErrMockInsufficient = errors.New("kudostest: insufficient treasury balance")

var (
	ledgerTreasuryKey = []byte("kudostest/ledger/treasury")
	ledgerAccountPfx  = []byte("kudostest/ledger/account/")
)

// Transfer is one ledger transfer attempt.
type Transfer struct {
	To     types.AccountID
	Amount types.Balance
}

// MockLedger is an engine.Ledger keeping balances in the call-scoped
// store, so rolled back calls leave no balance change behind.
// TransferHook, when set, runs before every transfer and can fail it.
type MockLedger struct {
	TransferHook func(to types.AccountID, amount types.Balance) error

	mu       sync.Mutex
	attempts []Transfer
}

// Fund sets the treasury balance in kv.
func (l *MockLedger) Fund(kv store.KV, amount types.Balance) {
	store.SetUint64(kv, ledgerTreasuryKey, uint64(amount))
}

// Received returns what a has been paid in r.
func (l *MockLedger) Received(r store.Reader, a types.AccountID) (types.Balance, error) {
	v, err := store.GetUint64(r, store.Key(ledgerAccountPfx, a[:]))
	return types.Balance(v), err
}

// Attempts returns every transfer attempted, including rolled back ones.
func (l *MockLedger) Attempts() []Transfer {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Transfer(nil), l.attempts...)
}

func (l *MockLedger) Balance(_ context.Context, kv store.KV) (types.Balance, error) {
	v, err := store.GetUint64(kv, ledgerTreasuryKey)
	return types.Balance(v), err
}

func (l *MockLedger) Transfer(ctx context.Context, kv store.KV, to types.AccountID, amount types.Balance) error {
	l.mu.Lock()
	l.attempts = append(l.attempts, Transfer{To: to, Amount: amount})
	l.mu.Unlock()

	if l.TransferHook != nil {
		if err := l.TransferHook(to, amount); err != nil {
			return err
		}
	}
	bal, err := l.Balance(ctx, kv)
	if err != nil {
		return err
	}
	if bal < amount {
		return ErrMockInsufficient
	}
	got, err := l.Received(kv, to)
	if err != nil {
		return err
	}
	store.SetUint64(kv, ledgerTreasuryKey, uint64(bal-amount))
	store.SetUint64(kv, store.Key(ledgerAccountPfx, to[:]), uint64(got+amount))
	return nil
}

// Mint is one minter call.
type Mint struct {
	To    types.AccountID
	Round types.RoundID
	Tier  types.Tier
}

// MockMinter records every mint. MintHook, when set, can fail a mint.
type MockMinter struct {
	MintHook func(Mint) error

	mu    sync.Mutex
	mints []Mint
}

func (m *MockMinter) MintTo(_ context.Context, _ store.KV, to types.AccountID, round types.RoundID, tier types.Tier) error {
	mint := Mint{To: to, Round: round, Tier: tier}
	if m.MintHook != nil {
		if err := m.MintHook(mint); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.mints = append(m.mints, mint)
	m.mu.Unlock()
	return nil
}

// Mints returns the successful mints in call order.
func (m *MockMinter) Mints() []Mint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Mint(nil), m.mints...)
}

// RecordingSink keeps every event it is sent.
type RecordingSink struct {
	mu     sync.Mutex
	events []engine.Event
}

func (r *RecordingSink) Emit(ev engine.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns the recorded events in emission order.
func (r *RecordingSink) Events() []engine.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]engine.Event(nil), r.events...)
}

// Kinds returns the Kind of every recorded event.
func (r *RecordingSink) Kinds() []string {
	evs := r.Events()
	out := make([]string, len(evs))
	for i, ev := range evs {
		out[i] = ev.Kind()
	}
	return out
}

// Reset forgets every recorded event.
func (r *RecordingSink) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
