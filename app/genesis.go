package app

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/blockberries/kudos/engine"
	"github.com/blockberries/kudos/store"
	"github.com/blockberries/kudos/types"
)

// Duration is a time.Duration that reads and writes its text form
// ("90m", "1h") in JSON.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// GenesisBalance seeds an account balance at genesis.
type GenesisBalance struct {
	Account types.AccountID `json:"account"`
	Amount  types.Balance   `json:"amount"`
}

// GenesisState is the JSON AppState of the genesis document.
type GenesisState struct {
	Admins             []types.AccountID `json:"admins"`
	Treasury           types.AccountID   `json:"treasury"`
	Endowment          types.Balance     `json:"endowment"`
	Balances           []GenesisBalance  `json:"balances,omitempty"`
	MinRoundDuration   Duration          `json:"min_round_duration"`
	MinBalance         types.Balance     `json:"min_balance"`
	MaxRoundNameLength int               `json:"max_round_name_length,omitempty"`
	RemainderToTop     bool              `json:"remainder_to_top"`
}

// DefaultGenesisState returns a template genesis with the engine
// defaults and no members.
func DefaultGenesisState() GenesisState {
	cfg := engine.DefaultConfig()
	return GenesisState{
		MinRoundDuration:   Duration(cfg.MinRoundDuration),
		MinBalance:         cfg.MinBalance,
		MaxRoundNameLength: cfg.MaxRoundNameLength,
	}
}

// ParseGenesis decodes and validates the AppState of a genesis
// document. An empty AppState is rejected: a registry without admins
// can never be used.
func ParseGenesis(raw []byte) (GenesisState, error) {
	gs := DefaultGenesisState()
	if len(raw) == 0 {
		return gs, fmt.Errorf("genesis: empty app state")
	}
	if err := json.Unmarshal(raw, &gs); err != nil {
		return gs, fmt.Errorf("genesis: %w", err)
	}
	return gs, gs.Validate()
}

// Doc wraps gs into a genesis document for chainID.
func (gs GenesisState) Doc(chainID string, genesisTime time.Time) (types.GenesisDoc, error) {
	raw, err := json.Marshal(gs)
	if err != nil {
		return types.GenesisDoc{}, fmt.Errorf("genesis: %w", err)
	}
	return types.GenesisDoc{
		ChainID:       chainID,
		GenesisTime:   types.TimeToTimestamp(genesisTime),
		InitialHeight: 1,
		AppState:      raw,
	}, nil
}

// Validate reports every problem with the genesis state at once.
func (gs GenesisState) Validate() error {
	var result *multierror.Error
	if len(gs.Admins) == 0 {
		result = multierror.Append(result, fmt.Errorf("at least one admin is required"))
	}
	seen := make(map[types.AccountID]bool, len(gs.Admins))
	for i, a := range gs.Admins {
		if a.IsZero() {
			result = multierror.Append(result, fmt.Errorf("admins[%d]: zero account", i))
		}
		if seen[a] {
			result = multierror.Append(result, fmt.Errorf("admins[%d]: duplicate %s", i, a))
		}
		seen[a] = true
	}
	if gs.Treasury.IsZero() {
		result = multierror.Append(result, fmt.Errorf("treasury: zero account"))
	}
	if gs.MinRoundDuration < 0 {
		result = multierror.Append(result, fmt.Errorf("min_round_duration: negative"))
	}
	if gs.MaxRoundNameLength <= 0 {
		result = multierror.Append(result, fmt.Errorf("max_round_name_length: must be positive"))
	}
	funded := make(map[types.AccountID]bool, len(gs.Balances))
	for i, b := range gs.Balances {
		if b.Account.IsZero() {
			result = multierror.Append(result, fmt.Errorf("balances[%d]: zero account", i))
		}
		if b.Account == gs.Treasury {
			result = multierror.Append(result, fmt.Errorf("balances[%d]: use endowment to fund the treasury", i))
		}
		if funded[b.Account] {
			result = multierror.Append(result, fmt.Errorf("balances[%d]: duplicate %s", i, b.Account))
		}
		funded[b.Account] = true
	}
	return result.ErrorOrNil()
}

// Params are the chain parameters fixed at genesis. They live in the
// store so snapshots and restarts carry them.
type Params struct {
	Treasury           types.AccountID `cramberry:"1"`
	MinRoundDuration   types.Duration  `cramberry:"2"`
	MinBalance         types.Balance   `cramberry:"3"`
	MaxRoundNameLength uint32          `cramberry:"4"`
	RemainderToTop     bool            `cramberry:"5"`
}

// Params extracts the chain parameters.
func (gs GenesisState) Params() Params {
	return Params{
		Treasury:           gs.Treasury,
		MinRoundDuration:   types.DurationFromGo(time.Duration(gs.MinRoundDuration)),
		MinBalance:         gs.MinBalance,
		MaxRoundNameLength: uint32(gs.MaxRoundNameLength),
		RemainderToTop:     gs.RemainderToTop,
	}
}

// EngineConfig returns the engine configuration the parameters select.
func (p Params) EngineConfig() engine.Config {
	return engine.Config{
		MinRoundDuration:   p.MinRoundDuration.ToGo(),
		MinBalance:         p.MinBalance,
		MaxRoundNameLength: int(p.MaxRoundNameLength),
		RemainderToTop:     p.RemainderToTop,
	}
}

// Application metadata keys. They sort after every engine, bank and
// nft key.
var (
	paramsKey = []byte{0xF0}
	heightKey = []byte{0xF1}
)

func loadParams(r store.Reader) (Params, error) {
	p, ok, err := store.GetValue[Params](r, paramsKey)
	if err != nil {
		return Params{}, err
	}
	if !ok {
		return Params{}, &store.CorruptError{Key: paramsKey, Err: fmt.Errorf("params missing")}
	}
	return p, nil
}
