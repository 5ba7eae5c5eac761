package engine

import (
	"github.com/blockberries/kudos/types"
)

// Reputation returns a's reputation as seen from the current round.
// A contributor not yet touched in the current round reads as 1.
func (e *Engine) Reputation(a types.AccountID) (types.Reputation, error) {
	rec, err := e.Contributor(a)
	if err != nil {
		return 0, err
	}
	return rec.Reputation, nil
}

// Contributor returns a's record as seen from the current round.
func (e *Engine) Contributor(a types.AccountID) (types.ContributorRecord, error) {
	var rec types.ContributorRecord
	err := e.view(func(s *state) error {
		id, err := s.currentRoundID()
		if err != nil {
			return err
		}
		r, ok, err := s.contributor(a, id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrMemberNotExist
		}
		rec = r
		return nil
	})
	return rec, err
}

// Role returns a's role; RoleNone for non-members.
func (e *Engine) Role(a types.AccountID) (types.Role, error) {
	var r types.Role
	err := e.view(func(s *state) (err error) {
		r, err = s.role(a)
		return err
	})
	return r, err
}

// Round returns the round with the given id.
func (e *Engine) Round(id types.RoundID) (types.Round, bool, error) {
	var (
		r  types.Round
		ok bool
	)
	err := e.view(func(s *state) (err error) {
		r, ok, err = s.round(id)
		return err
	})
	return r, ok, err
}

// CurrentRoundID returns the id of the most recently opened round, or 0.
func (e *Engine) CurrentRoundID() (types.RoundID, error) {
	var id types.RoundID
	err := e.view(func(s *state) (err error) {
		id, err = s.currentRoundID()
		return err
	})
	return id, err
}

// ActiveRound returns the current round if it has not been closed.
func (e *Engine) ActiveRound() (types.RoundID, types.Round, bool, error) {
	var (
		id     types.RoundID
		r      types.Round
		active bool
	)
	err := e.view(func(s *state) (err error) {
		id, r, active, err = s.activeRound()
		return err
	})
	return id, r, active, err
}

// Contributors lists every contributor in account order, with records
// as seen from the current round.
func (e *Engine) Contributors() ([]types.Contributor, error) {
	var out []types.Contributor
	err := e.view(func(s *state) error {
		id, err := s.currentRoundID()
		if err != nil {
			return err
		}
		out, err = s.contributors(id)
		return err
	})
	return out, err
}
