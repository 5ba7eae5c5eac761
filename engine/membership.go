package engine

import (
	"context"
	"fmt"

	"github.com/blockberries/kudos/store"
	"github.com/blockberries/kudos/types"
)

func (s *state) role(a types.AccountID) (types.Role, error) {
	raw, ok := s.kv.Get(roleKey(a))
	if !ok {
		return types.RoleNone, nil
	}
	if len(raw) != 1 {
		return types.RoleNone, &store.CorruptError{Key: roleKey(a), Err: fmt.Errorf("role length %d", len(raw))}
	}
	switch r := types.Role(raw[0]); r {
	case types.RoleAdmin, types.RoleContributor:
		return r, nil
	default:
		return types.RoleNone, &store.CorruptError{Key: roleKey(a), Err: fmt.Errorf("unknown role %d", r)}
	}
}

func (s *state) setRole(a types.AccountID, r types.Role) {
	if r == types.RoleNone {
		s.kv.Delete(roleKey(a))
		return
	}
	s.kv.Set(roleKey(a), []byte{byte(r)})
}

func (s *state) requireAdmin(caller types.AccountID) error {
	r, err := s.role(caller)
	if err != nil {
		return err
	}
	if r != types.RoleAdmin {
		return ErrAdministrativeFunction
	}
	return nil
}

// requireNoActiveRound rejects membership changes while the current
// round has not been closed. Passing FinishAt does not lift this.
func (s *state) requireNoActiveRound() error {
	_, _, active, err := s.activeRound()
	if err != nil {
		return err
	}
	if active {
		return ErrIsAnActiveRound
	}
	return nil
}

// requireStableMembership freezes the contributor set while a round is
// unfinished. Admin changes are never frozen.
func (s *state) requireStableMembership(role types.Role) error {
	if role != types.RoleContributor {
		return nil
	}
	return s.requireNoActiveRound()
}

func (s *state) hasMembers() bool {
	found := false
	s.kv.Iterate([]byte{prefixRole}, func(_, _ []byte) bool {
		found = true
		return false
	})
	return found
}

// Bootstrap installs the initial admins into an empty registry.
func (e *Engine) Bootstrap(admins ...types.AccountID) error {
	return e.exec("bootstrap", types.ZeroAccount, func(s *state) error {
		if s.hasMembers() {
			return ErrAlreadyBootstrapped
		}
		for _, a := range admins {
			r, err := s.role(a)
			if err != nil {
				return err
			}
			if r != types.RoleNone {
				return ErrMemberAlreadyExists
			}
			s.setRole(a, types.RoleAdmin)
			s.emit(MemberAdded{Account: a, Role: types.RoleAdmin})
		}
		return nil
	})
}

// AddAdmin grants target the admin role.
func (e *Engine) AddAdmin(_ context.Context, caller, target types.AccountID) error {
	return e.exec("add_admin", caller, func(s *state) error {
		return s.addMember(caller, target, types.RoleAdmin)
	})
}

// RemoveAdmin revokes target's admin role. An admin cannot remove
// itself, which keeps at least one admin in the registry.
func (e *Engine) RemoveAdmin(_ context.Context, caller, target types.AccountID) error {
	return e.exec("remove_admin", caller, func(s *state) error {
		return s.removeMember(caller, target, types.RoleAdmin)
	})
}

// AddContributor registers target as a contributor.
func (e *Engine) AddContributor(_ context.Context, caller, target types.AccountID) error {
	return e.exec("add_contributor", caller, func(s *state) error {
		return s.addMember(caller, target, types.RoleContributor)
	})
}

// RemoveContributor deregisters target and drops its record.
func (e *Engine) RemoveContributor(_ context.Context, caller, target types.AccountID) error {
	return e.exec("remove_contributor", caller, func(s *state) error {
		return s.removeMember(caller, target, types.RoleContributor)
	})
}

func (s *state) addMember(caller, target types.AccountID, role types.Role) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if err := s.requireStableMembership(role); err != nil {
		return err
	}
	existing, err := s.role(target)
	if err != nil {
		return err
	}
	if existing != types.RoleNone {
		return ErrMemberAlreadyExists
	}
	s.setRole(target, role)
	if role == types.RoleContributor {
		if err := s.putRecord(target, types.ContributorRecord{}); err != nil {
			return err
		}
	}
	s.emit(MemberAdded{Account: target, Role: role, By: caller})
	return nil
}

func (s *state) removeMember(caller, target types.AccountID, role types.Role) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if caller == target {
		return ErrCannotRemoveYourself
	}
	if err := s.requireStableMembership(role); err != nil {
		return err
	}
	existing, err := s.role(target)
	if err != nil {
		return err
	}
	if existing != role {
		return ErrMemberNotExist
	}
	s.setRole(target, types.RoleNone)
	if role == types.RoleContributor {
		s.deleteRecord(target)
	}
	s.emit(MemberRemoved{Account: target, Role: role, By: caller})
	return nil
}
