package engine

import (
	"context"

	"github.com/blockberries/kudos/types"
)

// SubmitVote casts vote from caller on receiver in the current round.
// The receiver's reputation moves by vote.Value times the integer
// square root of the caller's reputation.
func (e *Engine) SubmitVote(_ context.Context, caller, receiver types.AccountID, vote types.Vote) error {
	return e.exec("submit_vote", caller, func(s *state) error {
		from, isFrom, err := s.record(caller)
		if err != nil {
			return err
		}
		to, isTo, err := s.record(receiver)
		if err != nil {
			return err
		}
		if !isFrom || !isTo {
			return ErrOnlyContributorCanVote
		}
		if caller == receiver {
			return ErrCannotVoteItself
		}
		id, r, active, err := s.activeRound()
		if err != nil {
			return err
		}
		if !active || !r.Accepts(s.now) {
			return ErrIsNoActiveRound
		}
		if vote.Value > r.MaxVotes {
			return &VoteLimitError{Limit: r.MaxVotes}
		}
		if vote.Value == 0 {
			return ErrZeroVote
		}
		if !vote.Sign.Valid() {
			return ErrInvalidVoteSign
		}

		from = from.Refreshed(id)
		to = to.Refreshed(id)
		if remaining := r.MaxVotes - from.VotesSubmitted; vote.Value > remaining {
			return &QuotaError{Remaining: remaining}
		}
		from.VotesSubmitted += vote.Value
		to.Reputation = applyVote(to.Reputation, from.Reputation, vote)

		if err := s.putRecord(caller, from); err != nil {
			return err
		}
		if err := s.putRecord(receiver, to); err != nil {
			return err
		}
		s.emit(VoteCast{
			RoundID:    id,
			From:       caller,
			To:         receiver,
			Sign:       vote.Sign,
			Value:      vote.Value,
			Reputation: to.Reputation,
		})
		return nil
	})
}

// applyVote returns rep moved by value*isqrt(voterRep) in the vote's
// direction, clamped to [1, MaxReputation].
func applyVote(rep, voterRep types.Reputation, vote types.Vote) types.Reputation {
	delta := int64(vote.Value) * int64(ISqrt(uint64(voterRep)))
	next := int64(rep)
	if vote.Sign == types.Negative {
		next -= delta
	} else {
		next += delta
	}
	switch {
	case next < 1:
		return 1
	case next > int64(types.MaxReputation):
		return types.MaxReputation
	}
	return types.Reputation(next)
}
