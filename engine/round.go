package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/blockberries/kudos/store"
	"github.com/blockberries/kudos/types"
)

func (s *state) currentRoundID() (types.RoundID, error) {
	v, err := store.GetUint64(s.kv, currentRoundKey)
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, &store.CorruptError{Key: currentRoundKey, Err: fmt.Errorf("round id %d out of range", v)}
	}
	return types.RoundID(v), nil
}

func (s *state) round(id types.RoundID) (types.Round, bool, error) {
	return store.GetValue[types.Round](s.kv, roundKey(id))
}

func (s *state) putRound(id types.RoundID, r types.Round) error {
	return store.SetValue(s.kv, roundKey(id), r)
}

// activeRound returns the current round if it has not been closed yet.
func (s *state) activeRound() (types.RoundID, types.Round, bool, error) {
	id, err := s.currentRoundID()
	if err != nil || id == 0 {
		return 0, types.Round{}, false, err
	}
	r, ok, err := s.round(id)
	if err != nil {
		return 0, types.Round{}, false, err
	}
	if !ok {
		return 0, types.Round{}, false, &store.CorruptError{Key: roundKey(id), Err: fmt.Errorf("current round %d missing", id)}
	}
	if r.IsFinished {
		return id, r, false, nil
	}
	return id, r, true, nil
}

func (e *Engine) validateRound(p types.RoundParams, now types.Timestamp) error {
	switch {
	case p.MaxVotes < 1:
		return &RoundParamError{Reason: "max votes must be at least 1"}
	case len(p.Name) > e.cfg.MaxRoundNameLength:
		return &RoundParamError{Reason: fmt.Sprintf("name longer than %d bytes", e.cfg.MaxRoundNameLength)}
	case p.FinishAt.Before(now.Add(e.cfg.MinRoundDuration)):
		return &RoundParamError{Reason: fmt.Sprintf("round must last at least %s", e.cfg.MinRoundDuration)}
	}
	return nil
}

// OpenRound starts a new round and returns its id. The treasury must
// hold the round's value plus the configured minimum balance.
func (e *Engine) OpenRound(ctx context.Context, caller types.AccountID, p types.RoundParams) (types.RoundID, error) {
	var opened types.RoundID
	err := e.exec("open_round", caller, func(s *state) error {
		if err := s.requireAdmin(caller); err != nil {
			return err
		}
		if err := s.requireNoActiveRound(); err != nil {
			return err
		}
		if err := e.validateRound(p, s.now); err != nil {
			return err
		}
		need := uint64(p.Value) + uint64(e.cfg.MinBalance)
		if need < uint64(p.Value) {
			return &OverflowError{A: uint64(p.Value), B: uint64(e.cfg.MinBalance)}
		}
		bal, err := e.ledger.Balance(ctx, s.kv)
		if err != nil {
			return fmt.Errorf("treasury balance: %w", err)
		}
		if uint64(bal) < need {
			return ErrInsufficientFunds
		}

		prev, err := s.currentRoundID()
		if err != nil {
			return err
		}
		if prev == math.MaxUint32 {
			return &OverflowError{A: uint64(prev), B: 1}
		}
		id := prev + 1
		r := types.Round{
			Name:     p.Name,
			Value:    p.Value,
			MaxVotes: p.MaxVotes,
			FinishAt: p.FinishAt,
		}
		if err := s.putRound(id, r); err != nil {
			return err
		}
		store.SetUint64(s.kv, currentRoundKey, uint64(id))
		s.emit(RoundOpened{RoundID: id, Round: r, By: caller})
		opened = id
		return nil
	})
	if err != nil {
		return 0, err
	}
	e.log.Info().
		Uint32("round", uint32(opened)).
		Str("name", p.Name).
		Uint64("value", uint64(p.Value)).
		Uint8("max_votes", uint8(p.MaxVotes)).
		Time("finish_at", p.FinishAt.ToTime()).
		Msg("round opened")
	return opened, nil
}

// CloseRound distributes the current round's fund and awards tier
// tokens. It fails before FinishAt.
func (e *Engine) CloseRound(ctx context.Context, caller types.AccountID) (Settlement, error) {
	var result Settlement
	err := e.exec("close_round", caller, func(s *state) error {
		if err := s.requireAdmin(caller); err != nil {
			return err
		}
		id, r, active, err := s.activeRound()
		if err != nil {
			return err
		}
		if !active {
			return ErrIsNoActiveRound
		}
		if s.now.Before(r.FinishAt) {
			return ErrNotYetFinishedRound
		}
		st, err := e.settle(ctx, s, id, r)
		if err != nil {
			return err
		}
		r.IsFinished = true
		if err := s.putRound(id, r); err != nil {
			return err
		}
		s.emit(RoundClosed{
			RoundID:         id,
			TotalVotes:      st.TotalVotes,
			TotalReputation: st.TotalReputation,
			Distributed:     st.Distributed,
			Remainder:       st.Remainder,
		})
		result = st
		return nil
	})
	if err != nil {
		return Settlement{}, err
	}
	e.log.Info().
		Uint32("round", uint32(result.RoundID)).
		Uint64("total_votes", result.TotalVotes).
		Uint64("total_reputation", result.TotalReputation).
		Uint64("distributed", uint64(result.Distributed)).
		Int("awards", len(result.Awards)).
		Msg("round closed")
	return result, nil
}
