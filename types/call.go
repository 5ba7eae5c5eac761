package types

import (
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
)

// Method selects the engine operation a Call invokes.
type Method uint8

const (
	MethodAddAdmin          Method = 1
	MethodRemoveAdmin       Method = 2
	MethodAddContributor    Method = 3
	MethodRemoveContributor Method = 4
	MethodOpenRound         Method = 5
	MethodCloseRound        Method = 6
	MethodSubmitVote        Method = 7
	MethodFund              Method = 8
)

func (m Method) String() string {
	switch m {
	case MethodAddAdmin:
		return "add_admin"
	case MethodRemoveAdmin:
		return "remove_admin"
	case MethodAddContributor:
		return "add_contributor"
	case MethodRemoveContributor:
		return "remove_contributor"
	case MethodOpenRound:
		return "open_round"
	case MethodCloseRound:
		return "close_round"
	case MethodSubmitVote:
		return "submit_vote"
	case MethodFund:
		return "fund"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// Call is the transaction envelope. Caller has already been
// authenticated by the host; only the payload matching Method is read.
type Call struct {
	Caller AccountID `cramberry:"1"`
	Method Method    `cramberry:"2"`
	// Member operations and SubmitVote (receiver).
	Target AccountID `cramberry:"3"`
	// SubmitVote only.
	Vote *Vote `cramberry:"4"`
	// OpenRound only.
	Round *RoundParams `cramberry:"5"`
	// Fund only.
	Amount Balance `cramberry:"6"`
}

// Validate performs the stateless checks a call must pass before it
// is admitted.
func (c Call) Validate() error {
	if c.Caller.IsZero() {
		return fmt.Errorf("%s: zero caller", c.Method)
	}
	switch c.Method {
	case MethodAddAdmin, MethodRemoveAdmin, MethodAddContributor, MethodRemoveContributor:
		if c.Target.IsZero() {
			return fmt.Errorf("%s: zero target", c.Method)
		}
	case MethodOpenRound:
		if c.Round == nil {
			return fmt.Errorf("%s: missing round parameters", c.Method)
		}
	case MethodCloseRound:
	case MethodSubmitVote:
		if c.Target.IsZero() {
			return fmt.Errorf("%s: zero receiver", c.Method)
		}
		if c.Vote == nil {
			return fmt.Errorf("%s: missing vote", c.Method)
		}
		if !c.Vote.Sign.Valid() {
			return fmt.Errorf("%s: invalid sign %d", c.Method, c.Vote.Sign)
		}
	case MethodFund:
		if c.Amount == 0 {
			return fmt.Errorf("%s: zero amount", c.Method)
		}
	default:
		return fmt.Errorf("unknown method %d", uint8(c.Method))
	}
	return nil
}

// Encode serializes the call into a transaction.
func (c Call) Encode() (Tx, error) {
	data, err := cramberry.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode call: %w", err)
	}
	return Tx(data), nil
}

// DecodeCall parses a transaction produced by Call.Encode.
func DecodeCall(tx Tx) (Call, error) {
	var c Call
	if len(tx) == 0 {
		return c, fmt.Errorf("decode call: empty transaction")
	}
	if err := cramberry.Unmarshal(tx, &c); err != nil {
		return c, fmt.Errorf("decode call: %w", err)
	}
	return c, nil
}
