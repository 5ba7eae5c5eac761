// Package bank keeps native balances in the application store and pays
// round funds out of the treasury account.
package bank

import (
	"context"
	"errors"
	"fmt"

	"github.com/blockberries/kudos/store"
	"github.com/blockberries/kudos/types"
)

var (
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	ErrBalanceOverflow     = errors.New("bank: balance overflow")
	ErrZeroAmount          = errors.New("bank: zero amount")
)

const prefixBalance byte = 0x10

func balanceKey(a types.AccountID) []byte {
	return store.Key([]byte{prefixBalance}, a[:])
}

// Bank is the treasury ledger. It holds no state of its own; every
// operation works on the store it is given.
type Bank struct {
	treasury types.AccountID
}

// New returns a Bank paying out of treasury.
func New(treasury types.AccountID) *Bank {
	return &Bank{treasury: treasury}
}

// Treasury returns the treasury account.
func (b *Bank) Treasury() types.AccountID { return b.treasury }

// Balance returns the treasury balance.
func (b *Bank) Balance(_ context.Context, kv store.KV) (types.Balance, error) {
	return BalanceOf(kv, b.treasury)
}

// Transfer pays amount from the treasury to to.
func (b *Bank) Transfer(_ context.Context, kv store.KV, to types.AccountID, amount types.Balance) error {
	return Move(kv, b.treasury, to, amount)
}

// BalanceOf returns a's balance.
func BalanceOf(r store.Reader, a types.AccountID) (types.Balance, error) {
	v, err := store.GetUint64(r, balanceKey(a))
	return types.Balance(v), err
}

func setBalance(kv store.KV, a types.AccountID, v types.Balance) {
	if v == 0 {
		kv.Delete(balanceKey(a))
		return
	}
	store.SetUint64(kv, balanceKey(a), uint64(v))
}

// Credit mints amount into a. Only genesis creates value.
func Credit(kv store.KV, a types.AccountID, amount types.Balance) error {
	bal, err := BalanceOf(kv, a)
	if err != nil {
		return err
	}
	if bal+amount < bal {
		return fmt.Errorf("credit %d to %s: %w", amount, a, ErrBalanceOverflow)
	}
	setBalance(kv, a, bal+amount)
	return nil
}

// Move transfers amount from one account to another.
func Move(kv store.KV, from, to types.AccountID, amount types.Balance) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	fromBal, err := BalanceOf(kv, from)
	if err != nil {
		return err
	}
	if fromBal < amount {
		return fmt.Errorf("%s has %d, needs %d: %w", from, fromBal, amount, ErrInsufficientBalance)
	}
	if from == to {
		return nil
	}
	toBal, err := BalanceOf(kv, to)
	if err != nil {
		return err
	}
	if toBal+amount < toBal {
		return fmt.Errorf("move %d to %s: %w", amount, to, ErrBalanceOverflow)
	}
	setBalance(kv, from, fromBal-amount)
	setBalance(kv, to, toBal+amount)
	return nil
}

// Holding is one non-zero balance.
type Holding struct {
	Account types.AccountID `cramberry:"1"`
	Balance types.Balance   `cramberry:"2"`
}

// Holdings lists every non-zero balance in account order.
func Holdings(r store.Reader) ([]Holding, error) {
	var (
		out  []Holding
		ierr error
	)
	prefix := []byte{prefixBalance}
	r.Iterate(prefix, func(key, value []byte) bool {
		a, err := types.AccountFromBytes(key[len(prefix):])
		if err != nil {
			ierr = &store.CorruptError{Key: key, Err: err}
			return false
		}
		bal, err := BalanceOf(r, a)
		if err != nil {
			ierr = err
			return false
		}
		out = append(out, Holding{Account: a, Balance: bal})
		return true
	})
	return out, ierr
}
