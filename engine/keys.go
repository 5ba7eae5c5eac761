package engine

import (
	"github.com/blockberries/kudos/store"
	"github.com/blockberries/kudos/types"
)

// Store layout. Every engine key starts with one of these bytes.
const (
	prefixRole        byte = 0x01 // account -> role byte
	prefixContributor byte = 0x02 // account -> ContributorRecord
	prefixRound       byte = 0x03 // round id (BE) -> Round
	keyCurrentRoundID byte = 0x04 // -> current round id (BE uint64)
)

func roleKey(a types.AccountID) []byte {
	return store.Key([]byte{prefixRole}, a[:])
}

func contributorKey(a types.AccountID) []byte {
	return store.Key([]byte{prefixContributor}, a[:])
}

func roundKey(id types.RoundID) []byte {
	return store.Key([]byte{prefixRound}, store.Uint32Bytes(uint32(id)))
}

var currentRoundKey = []byte{keyCurrentRoundID}
