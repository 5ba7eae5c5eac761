package store

import (
	"encoding/binary"
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
)

// GetValue decodes the cramberry-encoded value at key into a T.
// The boolean is false when the key is absent.
func GetValue[T any](r Reader, key []byte) (T, bool, error) {
	data, ok := r.Get(key)
	if !ok {
		var zero T
		return zero, false, nil
	}
	out, err := Decode[T](key, data)
	return out, true, err
}

// Decode decodes a value read from key, typically inside Iterate.
func Decode[T any](key, data []byte) (T, error) {
	var out T
	if err := cramberry.Unmarshal(data, &out); err != nil {
		return out, &CorruptError{Key: key, Err: err}
	}
	return out, nil
}

// SetValue stores the cramberry encoding of v at key.
func SetValue[T any](kv KV, key []byte, v T) error {
	data, err := cramberry.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %x: %w", key, err)
	}
	kv.Set(key, data)
	return nil
}

// GetUint64 reads a big-endian uint64 at key; absent keys read as 0.
func GetUint64(r Reader, key []byte) (uint64, error) {
	data, ok := r.Get(key)
	if !ok {
		return 0, nil
	}
	if len(data) != 8 {
		return 0, &CorruptError{Key: key, Err: fmt.Errorf("expected 8 bytes, got %d", len(data))}
	}
	return binary.BigEndian.Uint64(data), nil
}

// SetUint64 stores v big-endian at key.
func SetUint64(kv KV, key []byte, v uint64) {
	kv.Set(key, Uint64Bytes(v))
}

// Uint64Bytes returns the big-endian encoding of v.
func Uint64Bytes(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

// Uint32Bytes returns the big-endian encoding of v.
func Uint32Bytes(v uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return buf
}

// CorruptError reports a stored value that cannot be decoded.
type CorruptError struct {
	Key []byte
	Err error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt value at %x: %v", e.Key, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }
