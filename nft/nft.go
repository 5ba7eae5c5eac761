// Package nft is the proof-of-contribution token collection. Tokens are
// numbered from 1 and indexed by owner.
package nft

import (
	"context"
	"errors"
	"fmt"

	"github.com/blockberries/kudos/store"
	"github.com/blockberries/kudos/types"
)

var (
	ErrMintZeroAccount = errors.New("nft: mint to the zero account")
	ErrInvalidTier     = errors.New("nft: invalid tier")
	ErrTokenNotFound   = errors.New("nft: token not found")
)

const (
	prefixToken byte = 0x20 // token id (BE) -> Token
	keyNextID   byte = 0x21 // -> next token id (BE)
	prefixOwner byte = 0x22 // owner | token id -> empty
)

var nextIDKey = []byte{keyNextID}

func tokenKey(id uint64) []byte {
	return store.Key([]byte{prefixToken}, store.Uint64Bytes(id))
}

func ownerPrefix(owner types.AccountID) []byte {
	return store.Key([]byte{prefixOwner}, owner[:])
}

func ownerKey(owner types.AccountID, id uint64) []byte {
	return store.Key(ownerPrefix(owner), store.Uint64Bytes(id))
}

// Collection mints into the store it is handed.
type Collection struct{}

// New returns the token collection.
func New() *Collection { return &Collection{} }

// MintTo mints a token of the given tier for round to to.
func (c *Collection) MintTo(_ context.Context, kv store.KV, to types.AccountID, round types.RoundID, tier types.Tier) error {
	_, err := Mint(kv, to, round, tier)
	return err
}

// Mint creates the next token and returns it.
func Mint(kv store.KV, to types.AccountID, round types.RoundID, tier types.Tier) (types.Token, error) {
	if to.IsZero() {
		return types.Token{}, ErrMintZeroAccount
	}
	switch tier {
	case types.TierGold, types.TierSilver, types.TierBronze:
	default:
		return types.Token{}, fmt.Errorf("%w: %d", ErrInvalidTier, tier)
	}
	next, err := store.GetUint64(kv, nextIDKey)
	if err != nil {
		return types.Token{}, err
	}
	if next == 0 {
		next = 1
	}
	tok := types.Token{ID: next, Owner: to, Tier: tier, RoundID: round}
	if err := store.SetValue(kv, tokenKey(tok.ID), tok); err != nil {
		return types.Token{}, err
	}
	kv.Set(ownerKey(to, tok.ID), []byte{})
	store.SetUint64(kv, nextIDKey, next+1)
	return tok, nil
}

// Get returns the token with the given id.
func Get(r store.Reader, id uint64) (types.Token, error) {
	tok, ok, err := store.GetValue[types.Token](r, tokenKey(id))
	if err != nil {
		return types.Token{}, err
	}
	if !ok {
		return types.Token{}, fmt.Errorf("%w: %d", ErrTokenNotFound, id)
	}
	return tok, nil
}

// OwnerOf returns the owner of token id.
func OwnerOf(r store.Reader, id uint64) (types.AccountID, error) {
	tok, err := Get(r, id)
	if err != nil {
		return types.ZeroAccount, err
	}
	return tok.Owner, nil
}

// TokensOf lists owner's tokens in mint order.
func TokensOf(r store.Reader, owner types.AccountID) ([]types.Token, error) {
	var ids []uint64
	prefix := ownerPrefix(owner)
	r.Iterate(prefix, func(key, _ []byte) bool {
		ids = append(ids, beUint64(key[len(prefix):]))
		return true
	})
	out := make([]types.Token, 0, len(ids))
	for _, id := range ids {
		tok, err := Get(r, id)
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
	}
	return out, nil
}

// Count returns the number of tokens minted so far.
func Count(r store.Reader) (uint64, error) {
	next, err := store.GetUint64(r, nextIDKey)
	if err != nil || next == 0 {
		return 0, err
	}
	return next - 1, nil
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
