package types

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// AccountID identifies a member of the community. The host chain
// authenticates callers; kudos only compares identifiers.
type AccountID [32]byte

// ZeroAccount is the all-zero identifier. It never holds a role.
var ZeroAccount AccountID

// IsZero returns true for the all-zero identifier.
func (a AccountID) IsZero() bool { return a == ZeroAccount }

// String returns the base58 text form.
func (a AccountID) String() string {
	return base58.Encode(a[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a AccountID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *AccountID) UnmarshalText(text []byte) error {
	id, err := ParseAccountID(string(text))
	if err != nil {
		return err
	}
	*a = id
	return nil
}

// ParseAccountID decodes the base58 text form of an account.
func ParseAccountID(s string) (AccountID, error) {
	var id AccountID
	raw, err := base58.Decode(s)
	if err != nil {
		return id, fmt.Errorf("decode account %q: %w", s, err)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("account %q: expected %d bytes, got %d", s, len(id), len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// AccountFromBytes copies b into an AccountID. b must be exactly
// 32 bytes long.
func AccountFromBytes(b []byte) (AccountID, error) {
	var id AccountID
	if len(b) != len(id) {
		return id, fmt.Errorf("account: expected %d bytes, got %d", len(id), len(b))
	}
	copy(id[:], b)
	return id, nil
}
