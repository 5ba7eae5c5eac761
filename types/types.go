// Package types defines the data types shared by the kudos round
// engine, its host application and its transports.
//
// These are plain Go structs with cramberry struct tags for
// deterministic binary serialization. The same encoding is used for
// records in the store, for transaction envelopes and on the wire.
package types

// Hash is a 32-byte cryptographic hash.
type Hash [32]byte

// AppHash is a deterministic fingerprint of the application
// state after execution.
type AppHash [32]byte

// Tx is an opaque transaction as delivered by the host chain.
// For kudos it is always a cramberry-encoded Call.
type Tx []byte

// QueryPath is a structured key for state queries
// (e.g., "/reputation", "/round/current").
type QueryPath string

// BlockID uniquely identifies a point in the chain.
type BlockID struct {
	Height uint64 `cramberry:"1"`
	Hash   Hash   `cramberry:"2"`
}
