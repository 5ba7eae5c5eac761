package types_test

import (
	"testing"
	"time"

	"github.com/blockberries/kudos/types"

	"github.com/blockberries/cramberry/pkg/cramberry"
)

// roundTrip marshals v, unmarshals into a new T, and returns it.
func roundTrip[T any](t *testing.T, v T) T {
	t.Helper()
	data, err := cramberry.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var out T
	if err := cramberry.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	return out
}

func testAccount(n byte) types.AccountID {
	var a types.AccountID
	a[0] = n
	a[31] = n
	return a
}

func TestTimestamp_RoundTrip(t *testing.T) {
	ts := types.TimeToTimestamp(time.Date(2024, 6, 15, 12, 30, 45, 123456789, time.UTC))
	got := roundTrip(t, ts)
	if got != ts {
		t.Fatalf("Timestamp round-trip failed: got %+v, want %+v", got, ts)
	}
	goTime := got.ToTime()
	if goTime.Nanosecond() != 123456789 {
		t.Fatalf("Timestamp.ToTime nanos wrong: %d", goTime.Nanosecond())
	}
}

func TestTimestamp_Ordering(t *testing.T) {
	base := types.TimeToTimestamp(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	later := base.Add(time.Nanosecond)

	if !base.Before(later) {
		t.Fatal("expected base before base+1ns")
	}
	if later.Before(base) {
		t.Fatal("expected base+1ns not before base")
	}
	if base.Before(base) {
		t.Fatal("Before must be strict")
	}
	if got := base.Add(time.Hour).ToTime().Sub(base.ToTime()); got != time.Hour {
		t.Fatalf("Add(1h) moved by %v", got)
	}
}

func TestRound_RoundTrip(t *testing.T) {
	v := types.Round{
		Name:       "spring",
		Value:      1600,
		MaxVotes:   5,
		FinishAt:   types.TimeToTimestamp(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
		IsFinished: true,
	}
	got := roundTrip(t, v)
	if got != v {
		t.Fatalf("Round round-trip failed: got %+v, want %+v", got, v)
	}
}

func TestRound_Accepts(t *testing.T) {
	finish := types.TimeToTimestamp(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	r := types.Round{MaxVotes: 1, FinishAt: finish}

	if !r.Accepts(finish.Add(-time.Second)) {
		t.Error("expected votes accepted before FinishAt")
	}
	if r.Accepts(finish) {
		t.Error("expected votes rejected at FinishAt")
	}
	r.IsFinished = true
	if r.Accepts(finish.Add(-time.Second)) {
		t.Error("expected votes rejected once finished")
	}
}

func TestContributorRecord_Refreshed(t *testing.T) {
	rec := types.ContributorRecord{RoundID: 3, Reputation: 40, VotesSubmitted: 2}

	if got := rec.Refreshed(3); got != rec {
		t.Fatalf("same round must not reset: got %+v", got)
	}
	want := types.ContributorRecord{RoundID: 4, Reputation: 1}
	if got := rec.Refreshed(4); got != want {
		t.Fatalf("new round must reset: got %+v, want %+v", got, want)
	}
	fresh := types.ContributorRecord{}
	if got := fresh.Refreshed(1); got != (types.ContributorRecord{RoundID: 1, Reputation: 1}) {
		t.Fatalf("uninitialized record must reset: got %+v", got)
	}
	if got := fresh.Refreshed(0); got != (types.ContributorRecord{Reputation: 1}) {
		t.Fatalf("uninitialized record must reset before the first round: got %+v", got)
	}
}

func TestCall_EncodeDecode(t *testing.T) {
	call := types.Call{
		Caller: testAccount(1),
		Method: types.MethodSubmitVote,
		Target: testAccount(2),
		Vote:   &types.Vote{Sign: types.Negative, Value: 3},
	}
	tx, err := call.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := types.DecodeCall(tx)
	if err != nil {
		t.Fatalf("DecodeCall: %v", err)
	}
	if got.Caller != call.Caller || got.Method != call.Method || got.Target != call.Target {
		t.Fatalf("header mismatch: got %+v", got)
	}
	if got.Vote == nil || *got.Vote != *call.Vote {
		t.Fatalf("vote mismatch: got %+v", got.Vote)
	}
	if got.Round != nil {
		t.Fatalf("expected nil round payload, got %+v", got.Round)
	}
}

func TestCall_Validate(t *testing.T) {
	caller := testAccount(1)
	cases := []struct {
		name string
		call types.Call
		ok   bool
	}{
		{"add contributor", types.Call{Caller: caller, Method: types.MethodAddContributor, Target: testAccount(2)}, true},
		{"zero caller", types.Call{Method: types.MethodCloseRound}, false},
		{"zero target", types.Call{Caller: caller, Method: types.MethodAddAdmin}, false},
		{"open without params", types.Call{Caller: caller, Method: types.MethodOpenRound}, false},
		{"close", types.Call{Caller: caller, Method: types.MethodCloseRound}, true},
		{"vote without payload", types.Call{Caller: caller, Method: types.MethodSubmitVote, Target: testAccount(2)}, false},
		{"vote bad sign", types.Call{Caller: caller, Method: types.MethodSubmitVote, Target: testAccount(2), Vote: &types.Vote{Value: 1}}, false},
		{"fund zero", types.Call{Caller: caller, Method: types.MethodFund}, false},
		{"unknown method", types.Call{Caller: caller, Method: 99}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call.Validate()
			if tc.ok && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDecodeCall_Empty(t *testing.T) {
	if _, err := types.DecodeCall(nil); err == nil {
		t.Fatal("expected error for empty transaction")
	}
}

func TestAccountID_Text(t *testing.T) {
	a := testAccount(7)
	parsed, err := types.ParseAccountID(a.String())
	if err != nil {
		t.Fatalf("ParseAccountID: %v", err)
	}
	if parsed != a {
		t.Fatalf("text round-trip failed: got %x", parsed)
	}
	if _, err := types.ParseAccountID("0OIl"); err == nil {
		t.Fatal("expected error for invalid base58")
	}
	if _, err := types.ParseAccountID("2g"); err == nil {
		t.Fatal("expected error for short account")
	}
}

func TestCapabilities_String(t *testing.T) {
	if got := types.Capabilities(0).String(); got != "none" {
		t.Errorf("expected none, got %q", got)
	}
	if got := (types.CapStateSync | types.CapSimulation).String(); got != "StateSync|Simulation" {
		t.Errorf("unexpected %q", got)
	}
}

func TestImportResult_Constructors(t *testing.T) {
	h := types.AppHash{0x01}
	if r := types.ImportAccepted(h); r.Status != types.ImportOK || *r.AppHash != h {
		t.Fatalf("unexpected %+v", r)
	}
	if r := types.ImportRejected("bad format %d", 7); r.Status != types.ImportReject || r.Reason != "bad format 7" {
		t.Fatalf("unexpected %+v", r)
	}
	if r := types.ImportRetry([]uint32{2}); r.Status.String() != "retry_chunks" || r.RetryIndices[0] != 2 {
		t.Fatalf("unexpected %+v", r)
	}
}

func TestEvent_Attr(t *testing.T) {
	ev := types.Event{Kind: "vote_cast", Attributes: []types.EventAttribute{
		{Key: "round", Value: "3", Index: true},
		{Key: "sign", Value: "positive"},
	}}
	if v, ok := ev.Attr("sign"); !ok || v != "positive" {
		t.Fatalf("unexpected %q %v", v, ok)
	}
	if _, ok := ev.Attr("missing"); ok {
		t.Fatal("expected missing attribute")
	}
}
