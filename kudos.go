// Package kudos defines the boundary between a host chain and the kudos
// round application: a peer-review reward system in which contributors
// vote on each other during time-boxed rounds and split the round fund
// in proportion to the reputation they earned.
//
// The core [Lifecycle] interface is required. [StateSync] and
// [Simulator] are optional capabilities discovered via type assertion
// at handshake time.
package kudos

import (
	"context"

	"github.com/blockberries/kudos/types"
)

// Lifecycle is the interface every kudos application host drives.
//
// The host guarantees the following call order:
//  1. Handshake is called exactly once, before anything else.
//  2. ExecuteBlock(h) is called exactly once per committed height h.
//  3. Commit is called exactly once after each ExecuteBlock.
//  4. CheckTx, Query may be called concurrently at any time after Handshake.
type Lifecycle interface {
	// Handshake is called once on every startup.
	//
	// If LastCommitted is nil this is a fresh genesis and Genesis
	// carries the initial admins, treasury endowment and engine
	// parameters. Otherwise the application reports its own committed
	// height and app hash so the host can detect divergence.
	Handshake(ctx context.Context, req types.HandshakeRequest) (types.HandshakeResponse, error)

	// CheckTx statelessly validates an encoded call before it is
	// admitted to the mempool. MUST be safe for concurrent use.
	CheckTx(ctx context.Context, tx types.Tx, mctx types.MempoolContext) (types.GateVerdict, error)

	// ExecuteBlock applies every call in the block, in order, using the
	// block time as the clock. A call that fails leaves no trace beyond
	// its outcome code.
	//
	// This method MUST NOT persist state; that happens in Commit. The
	// AppHash in the returned BlockOutcome is a deterministic digest of
	// the resulting state.
	ExecuteBlock(ctx context.Context, block types.FinalizedBlock) (types.BlockOutcome, error)

	// Commit makes the state produced by the last ExecuteBlock durable
	// and delivers the block's events to the configured sinks.
	Commit(ctx context.Context) (types.CommitResult, error)

	// Query reads committed state. MUST be safe for concurrent use,
	// including concurrently with ExecuteBlock.
	Query(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error)
}

// StateSync exports and imports whole-state snapshots.
//
// Declared via: types.CapStateSync in HandshakeResponse.Capabilities
type StateSync interface {
	// AvailableSnapshots lists snapshots the application can export.
	AvailableSnapshots(ctx context.Context) ([]types.SnapshotDescriptor, error)

	// ExportSnapshot exports a snapshot as a pull-based stream of chunks.
	// The channel is closed after the last chunk.
	ExportSnapshot(ctx context.Context, height uint64, format uint32) (<-chan types.SnapshotChunk, *types.SnapshotDescriptor, error)

	// ImportSnapshot rebuilds state from a stream of chunks and returns
	// the resulting AppHash.
	ImportSnapshot(ctx context.Context, descriptor types.SnapshotDescriptor, chunks <-chan types.SnapshotChunk) (types.ImportResult, error)
}

// Simulator dry-runs calls.
//
// Declared via: types.CapSimulation in HandshakeResponse.Capabilities
type Simulator interface {
	// Simulate executes tx against committed state and discards the
	// result. MUST be safe for concurrent use.
	Simulate(ctx context.Context, tx types.Tx) (types.TxOutcome, error)
}

// Application embeds every interface.
type Application interface {
	Lifecycle
	StateSync
	Simulator
}

// Connection is a transport-agnostic connection to an application.
// Both gRPC clients and in-process adapters implement it.
type Connection interface {
	Lifecycle

	// Capabilities returns the capabilities discovered at handshake.
	// Must only be called after Handshake completes.
	Capabilities() types.Capabilities

	// AsStateSync returns the StateSync interface if available, or nil.
	AsStateSync() StateSync

	// AsSimulator returns the Simulator interface if available, or nil.
	AsSimulator() Simulator

	// Close terminates the connection.
	Close() error
}
