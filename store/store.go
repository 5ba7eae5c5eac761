// Package store provides the key-value state kudos keeps its records
// in, and the transactional overlay every engine call runs inside.
//
// Keys and values are opaque byte strings. Iteration is always in
// ascending key order so that anything derived from it (the member
// set, the app hash, snapshots) is deterministic.
package store

import "bytes"

// Reader is the read half of a store.
type Reader interface {
	// Get returns the value stored at key.
	Get(key []byte) ([]byte, bool)
	// Has reports whether key is present.
	Has(key []byte) bool
	// Iterate calls fn for every key with the given prefix in
	// ascending order until fn returns false.
	Iterate(prefix []byte, fn func(key, value []byte) bool)
}

// KV is a readable and writable store.
type KV interface {
	Reader
	// Set stores value at key.
	Set(key, value []byte)
	// Delete removes key. Deleting a missing key is a no-op.
	Delete(key []byte)
}

// Pair is a single key-value entry.
type Pair struct {
	Key   []byte `cramberry:"1"`
	Value []byte `cramberry:"2"`
}

// Dump returns all entries of r in key order.
func Dump(r Reader) []Pair {
	var out []Pair
	r.Iterate(nil, func(k, v []byte) bool {
		out = append(out, Pair{Key: bytes.Clone(k), Value: bytes.Clone(v)})
		return true
	})
	return out
}

// Key concatenates parts into a single key.
func Key(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	k := make([]byte, 0, n)
	for _, p := range parts {
		k = append(k, p...)
	}
	return k
}
