package kudosgrpc

import "github.com/blockberries/kudos/types"

// Request and response envelopes for RPCs whose Go signatures do not
// map onto a single struct.

// CheckTxRequest wraps the parameters for Lifecycle.CheckTx.
type CheckTxRequest struct {
	Tx      types.Tx             `cramberry:"1"`
	Context types.MempoolContext `cramberry:"2"`
}

// CommitRequest is the empty request for Lifecycle.Commit.
type CommitRequest struct{}

// AvailableSnapshotsRequest is the empty request for StateSync.AvailableSnapshots.
type AvailableSnapshotsRequest struct{}

// AvailableSnapshotsResponse wraps the result of StateSync.AvailableSnapshots.
type AvailableSnapshotsResponse struct {
	Snapshots []types.SnapshotDescriptor `cramberry:"1"`
}

// ExportSnapshotRequest wraps the parameters for StateSync.ExportSnapshot.
type ExportSnapshotRequest struct {
	Height uint64 `cramberry:"1"`
	Format uint32 `cramberry:"2"`
}

// ImportSnapshotMessage carries either the descriptor (first message)
// or a chunk (every later message) of the ImportSnapshot stream.
type ImportSnapshotMessage struct {
	Descriptor *types.SnapshotDescriptor `cramberry:"1"`
	Chunk      *types.SnapshotChunk      `cramberry:"2"`
}

// SimulateRequest wraps the parameter for Simulator.Simulate.
type SimulateRequest struct {
	Tx types.Tx `cramberry:"1"`
}
