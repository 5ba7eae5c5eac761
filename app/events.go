package app

import (
	"context"
	"strconv"

	"github.com/hashicorp/go-multierror"

	"github.com/blockberries/kudos/engine"
	"github.com/blockberries/kudos/types"
)

// Funded is emitted when a member moves funds into the treasury.
type Funded struct {
	From   types.AccountID
	Amount types.Balance
}

func (Funded) Kind() string { return "treasury_funded" }

func (e Funded) Attributes() []types.EventAttribute {
	return []types.EventAttribute{
		{Key: "from", Value: e.From.String(), Index: true},
		{Key: "amount", Value: strconv.FormatUint(uint64(e.Amount), 10)},
	}
}

// CommittedBlock is what sinks see after Commit.
type CommittedBlock struct {
	Height uint64
	Time   types.Timestamp
	Events []engine.Event
}

// Sink receives every committed block. Errors are logged; they never
// undo a commit.
type Sink interface {
	CommitBlock(ctx context.Context, block CommittedBlock) error
}

// Events adapts an engine.EventSink to Sink.
func Events(s engine.EventSink) Sink { return eventSink{s} }

type eventSink struct{ s engine.EventSink }

func (e eventSink) CommitBlock(_ context.Context, b CommittedBlock) error {
	for _, ev := range b.Events {
		e.s.Emit(ev)
	}
	return nil
}

// Sinks fans committed blocks out to several sinks.
type Sinks []Sink

func (ss Sinks) CommitBlock(ctx context.Context, b CommittedBlock) error {
	var result *multierror.Error
	for _, s := range ss {
		if err := s.CommitBlock(ctx, b); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func toTypes(evs []engine.Event) []types.Event {
	if len(evs) == 0 {
		return nil
	}
	out := make([]types.Event, len(evs))
	for i, ev := range evs {
		out[i] = engine.ToTypes(ev)
	}
	return out
}
