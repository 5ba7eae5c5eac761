package engine

import (
	"strconv"
	"sync"

	"github.com/blockberries/kudos/types"
)

// Event is a committed engine event.
type Event interface {
	// Kind names the event, e.g. "round_opened".
	Kind() string
	// Attributes flattens the event for indexing.
	Attributes() []types.EventAttribute
}

// EventSink receives events after the call that produced them
// committed. Emit must not call back into the engine.
type EventSink interface {
	Emit(Event)
}

// NopSink drops every event.
type NopSink struct{}

func (NopSink) Emit(Event) {}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(ev Event) { f(ev) }

// MultiSink fans events out to every sink in order.
type MultiSink []EventSink

func (m MultiSink) Emit(ev Event) {
	for _, s := range m {
		s.Emit(ev)
	}
}

// Buffer is a sink that holds events until they are drained. Host
// applications use it to defer delivery until a block commits.
type Buffer struct {
	mu     sync.Mutex
	events []Event
}

func (b *Buffer) Emit(ev Event) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
}

// Drain returns the buffered events and empties the buffer.
func (b *Buffer) Drain() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.events
	b.events = nil
	return out
}

// Len returns the number of buffered events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// ToTypes converts an engine event to its wire form.
func ToTypes(ev Event) types.Event {
	return types.Event{Kind: ev.Kind(), Attributes: ev.Attributes()}
}

func attr(key, value string, index bool) types.EventAttribute {
	return types.EventAttribute{Key: key, Value: value, Index: index}
}

func roundAttr(id types.RoundID) types.EventAttribute {
	return attr("round_id", strconv.FormatUint(uint64(id), 10), true)
}

func uintAttr(key string, v uint64) types.EventAttribute {
	return attr(key, strconv.FormatUint(v, 10), false)
}

// RoundOpened is emitted when an admin opens a round.
type RoundOpened struct {
	RoundID types.RoundID
	Round   types.Round
	By      types.AccountID
}

func (RoundOpened) Kind() string { return "round_opened" }

func (e RoundOpened) Attributes() []types.EventAttribute {
	return []types.EventAttribute{
		roundAttr(e.RoundID),
		attr("name", e.Round.Name, false),
		uintAttr("value", uint64(e.Round.Value)),
		uintAttr("max_votes", uint64(e.Round.MaxVotes)),
		attr("finish_at", e.Round.FinishAt.ToTime().Format(timeLayout), false),
		attr("by", e.By.String(), true),
	}
}

// RoundClosed is emitted when a round has been distributed.
type RoundClosed struct {
	RoundID         types.RoundID
	TotalVotes      uint64
	TotalReputation uint64
	Distributed     types.Balance
	Remainder       types.Balance
}

func (RoundClosed) Kind() string { return "round_closed" }

func (e RoundClosed) Attributes() []types.EventAttribute {
	return []types.EventAttribute{
		roundAttr(e.RoundID),
		uintAttr("total_votes", e.TotalVotes),
		uintAttr("total_reputation", e.TotalReputation),
		uintAttr("distributed", uint64(e.Distributed)),
		uintAttr("remainder", uint64(e.Remainder)),
	}
}

// VoteCast is emitted for every accepted vote.
type VoteCast struct {
	RoundID types.RoundID
	From    types.AccountID
	To      types.AccountID
	Sign    types.VoteSign
	Value   types.VotesNumber
	// Reputation is the target's reputation after the vote.
	Reputation types.Reputation
}

func (VoteCast) Kind() string { return "vote_cast" }

func (e VoteCast) Attributes() []types.EventAttribute {
	return []types.EventAttribute{
		roundAttr(e.RoundID),
		attr("from", e.From.String(), true),
		attr("to", e.To.String(), true),
		attr("sign", e.Sign.String(), false),
		uintAttr("value", uint64(e.Value)),
		uintAttr("reputation", uint64(e.Reputation)),
	}
}

// MemberAdded is emitted when an account is granted a role.
type MemberAdded struct {
	Account types.AccountID
	Role    types.Role
	By      types.AccountID
}

func (MemberAdded) Kind() string { return "member_added" }

func (e MemberAdded) Attributes() []types.EventAttribute {
	return []types.EventAttribute{
		attr("account", e.Account.String(), true),
		attr("role", e.Role.String(), true),
		attr("by", e.By.String(), false),
	}
}

// MemberRemoved is emitted when an account loses its role.
type MemberRemoved struct {
	Account types.AccountID
	Role    types.Role
	By      types.AccountID
}

func (MemberRemoved) Kind() string { return "member_removed" }

func (e MemberRemoved) Attributes() []types.EventAttribute {
	return []types.EventAttribute{
		attr("account", e.Account.String(), true),
		attr("role", e.Role.String(), true),
		attr("by", e.By.String(), false),
	}
}

// PayoutSent is emitted for every share transferred at close.
type PayoutSent struct {
	RoundID types.RoundID
	Account types.AccountID
	Amount  types.Balance
}

func (PayoutSent) Kind() string { return "payout_sent" }

func (e PayoutSent) Attributes() []types.EventAttribute {
	return []types.EventAttribute{
		roundAttr(e.RoundID),
		attr("account", e.Account.String(), true),
		uintAttr("amount", uint64(e.Amount)),
	}
}

// TokenAwarded is emitted for every tier token minted at close.
type TokenAwarded struct {
	RoundID types.RoundID
	Account types.AccountID
	Tier    types.Tier
}

func (TokenAwarded) Kind() string { return "token_awarded" }

func (e TokenAwarded) Attributes() []types.EventAttribute {
	return []types.EventAttribute{
		roundAttr(e.RoundID),
		attr("account", e.Account.String(), true),
		attr("tier", e.Tier.String(), true),
	}
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"
