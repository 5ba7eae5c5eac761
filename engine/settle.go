package engine

import (
	"context"
	"math/bits"
	"sort"

	"github.com/blockberries/kudos/types"
)

// Settlement is the outcome of closing a round.
type Settlement struct {
	RoundID         types.RoundID
	TotalVotes      uint64
	TotalReputation uint64
	// Distributed is the sum of all payouts.
	Distributed types.Balance
	// Remainder is the part of the round value the treasury keeps.
	Remainder types.Balance
	// Payouts in account order.
	Payouts []Payout
	// Awards in tier order, gold first.
	Awards []Award
}

// Payout is one contributor's share of a round.
type Payout struct {
	Account types.AccountID
	Amount  types.Balance
}

// Award is one tier token granted at close.
type Award struct {
	Account types.AccountID
	Tier    types.Tier
}

// planSettlement computes payouts and awards for members, which must be
// refreshed to the round and in account order. Each share is
// floor(value*rep/totalRep).
func planSettlement(id types.RoundID, value types.Balance, members []types.Contributor, remainderToTop bool) (Settlement, error) {
	st := Settlement{RoundID: id, Remainder: value}
	for _, m := range members {
		st.TotalVotes += uint64(m.Record.VotesSubmitted)
		st.TotalReputation += uint64(m.Record.Reputation)
	}
	if st.TotalReputation == 0 {
		return st, nil
	}

	st.Payouts = make([]Payout, 0, len(members))
	for _, m := range members {
		hi, lo := bits.Mul64(uint64(value), uint64(m.Record.Reputation))
		if hi >= st.TotalReputation {
			return Settlement{}, &OverflowError{A: uint64(value), B: uint64(m.Record.Reputation)}
		}
		share, _ := bits.Div64(hi, lo, st.TotalReputation)
		st.Payouts = append(st.Payouts, Payout{Account: m.Account, Amount: types.Balance(share)})
		st.Distributed += types.Balance(share)
	}
	st.Remainder = value - st.Distributed

	ranked := make([]types.Contributor, len(members))
	copy(ranked, members)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Record.Reputation < ranked[j].Record.Reputation
	})
	for _, tier := range types.Tiers {
		if len(ranked) == 0 {
			break
		}
		top := ranked[len(ranked)-1]
		ranked = ranked[:len(ranked)-1]
		st.Awards = append(st.Awards, Award{Account: top.Account, Tier: tier})
	}

	if remainderToTop && st.Remainder > 0 {
		gold := st.Awards[0].Account
		for i := range st.Payouts {
			if st.Payouts[i].Account == gold {
				st.Payouts[i].Amount += st.Remainder
				break
			}
		}
		st.Distributed += st.Remainder
		st.Remainder = 0
	}
	return st, nil
}

// settle refreshes and persists every contributor record for round id,
// pays out the round value and mints the tier tokens.
func (e *Engine) settle(ctx context.Context, s *state, id types.RoundID, r types.Round) (Settlement, error) {
	members, err := s.contributors(id)
	if err != nil {
		return Settlement{}, err
	}
	for _, m := range members {
		if err := s.putRecord(m.Account, m.Record); err != nil {
			return Settlement{}, err
		}
	}
	st, err := planSettlement(id, r.Value, members, e.cfg.RemainderToTop)
	if err != nil {
		return Settlement{}, err
	}

	for _, p := range st.Payouts {
		if p.Amount == 0 {
			continue
		}
		if err := e.ledger.Transfer(ctx, s.kv, p.Account, p.Amount); err != nil {
			return Settlement{}, &TransferError{Account: p.Account, Amount: p.Amount, Err: err}
		}
		s.emit(PayoutSent{RoundID: id, Account: p.Account, Amount: p.Amount})
	}
	for _, a := range st.Awards {
		if err := e.minter.MintTo(ctx, s.kv, a.Account, id, a.Tier); err != nil {
			return Settlement{}, &nftError{cause: err}
		}
		s.emit(TokenAwarded{RoundID: id, Account: a.Account, Tier: a.Tier})
	}
	return st, nil
}
