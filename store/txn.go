package store

import (
	"bytes"
	"slices"
	"strings"
)

// Compile-time interface check.
var _ KV = (*Txn)(nil)

// Txn buffers writes on top of a parent KV. Reads see the buffered
// writes first. Nothing reaches the parent until Commit; dropping the
// Txn discards every write. Txns nest: a Txn is itself a valid parent.
type Txn struct {
	parent KV
	// writes maps key -> value; a nil value marks a deletion.
	writes map[string][]byte
}

// NewTxn starts a transaction over parent.
func NewTxn(parent KV) *Txn {
	return &Txn{parent: parent, writes: make(map[string][]byte)}
}

func (t *Txn) Get(key []byte) ([]byte, bool) {
	if v, ok := t.writes[string(key)]; ok {
		if v == nil {
			return nil, false
		}
		return v, true
	}
	return t.parent.Get(key)
}

func (t *Txn) Has(key []byte) bool {
	_, ok := t.Get(key)
	return ok
}

func (t *Txn) Set(key, value []byte) {
	v := bytes.Clone(value)
	if v == nil {
		v = []byte{}
	}
	t.writes[string(key)] = v
}

func (t *Txn) Delete(key []byte) {
	t.writes[string(key)] = nil
}

// Iterate merges the parent's entries with the buffered writes.
func (t *Txn) Iterate(prefix []byte, fn func(key, value []byte) bool) {
	merged := make(map[string][]byte)
	t.parent.Iterate(prefix, func(k, v []byte) bool {
		merged[string(k)] = v
		return true
	})
	p := string(prefix)
	for k, v := range t.writes {
		if !strings.HasPrefix(k, p) {
			continue
		}
		if v == nil {
			delete(merged, k)
		} else {
			merged[k] = v
		}
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if !fn([]byte(k), merged[k]) {
			return
		}
	}
}

// Commit applies the buffered writes to the parent in key order and
// resets the transaction.
func (t *Txn) Commit() {
	keys := make([]string, 0, len(t.writes))
	for k := range t.writes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if v := t.writes[k]; v == nil {
			t.parent.Delete([]byte(k))
		} else {
			t.parent.Set([]byte(k), v)
		}
	}
	t.writes = make(map[string][]byte)
}

// Discard drops the buffered writes.
func (t *Txn) Discard() {
	t.writes = make(map[string][]byte)
}

// Dirty reports whether the transaction holds uncommitted writes.
func (t *Txn) Dirty() bool { return len(t.writes) > 0 }
