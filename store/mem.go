package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"slices"
	"strings"
)

// Compile-time interface check.
var _ KV = (*MemStore)(nil)

// MemStore is an in-memory KV. It is not safe for concurrent use;
// callers serialize access.
type MemStore struct {
	data map[string][]byte
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

// Load creates a store holding pairs.
func Load(pairs []Pair) *MemStore {
	m := NewMemStore()
	for _, p := range pairs {
		m.Set(p.Key, p.Value)
	}
	return m
}

func (m *MemStore) Get(key []byte) ([]byte, bool) {
	v, ok := m.data[string(key)]
	return v, ok
}

func (m *MemStore) Has(key []byte) bool {
	_, ok := m.data[string(key)]
	return ok
}

func (m *MemStore) Set(key, value []byte) {
	m.data[string(key)] = bytes.Clone(value)
}

func (m *MemStore) Delete(key []byte) {
	delete(m.data, string(key))
}

func (m *MemStore) Iterate(prefix []byte, fn func(key, value []byte) bool) {
	keys := make([]string, 0, len(m.data))
	p := string(prefix)
	for k := range m.data {
		if strings.HasPrefix(k, p) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	for _, k := range keys {
		if !fn([]byte(k), m.data[k]) {
			return
		}
	}
}

// Len returns the number of entries.
func (m *MemStore) Len() int { return len(m.data) }

// Hash computes a deterministic SHA256 over every entry of r in key
// order. Each key and value is length-prefixed.
func Hash(r Reader) [32]byte {
	h := sha256.New()
	var lenBuf [8]byte
	r.Iterate(nil, func(k, v []byte) bool {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(k)))
		h.Write(lenBuf[:])
		h.Write(k)
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(v)))
		h.Write(lenBuf[:])
		h.Write(v)
		return true
	})
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
