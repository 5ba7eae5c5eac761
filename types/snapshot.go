package types

import "fmt"

// SnapshotDescriptor identifies a full registry snapshot at a height.
type SnapshotDescriptor struct {
	Height uint64 `cramberry:"1"`
	Format uint32 `cramberry:"2"`
	Chunks uint32 `cramberry:"3"`
	// SHA-256 of the concatenated chunks.
	Hash     Hash   `cramberry:"4"`
	Metadata []byte `cramberry:"5"`
}

func (d SnapshotDescriptor) String() string {
	return fmt.Sprintf("snapshot{height=%d format=%d chunks=%d hash=%x}", d.Height, d.Format, d.Chunks, d.Hash[:6])
}

// SnapshotChunk is one slice of a snapshot payload.
type SnapshotChunk struct {
	Index uint32 `cramberry:"1"`
	Data  []byte `cramberry:"2"`
}

// ImportStatus is the verdict on an offered snapshot.
type ImportStatus uint8

const (
	ImportOK ImportStatus = 1
	// The snapshot cannot be used; the host should try another.
	ImportReject ImportStatus = 2
	// Chunks were missing; the host should resend RetryIndices.
	ImportRetryChunks ImportStatus = 3
)

func (s ImportStatus) String() string {
	switch s {
	case ImportOK:
		return "ok"
	case ImportReject:
		return "reject"
	case ImportRetryChunks:
		return "retry_chunks"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// ImportResult is the outcome of a snapshot import.
type ImportResult struct {
	Status       ImportStatus `cramberry:"1"`
	AppHash      *AppHash     `cramberry:"2"`
	Reason       string       `cramberry:"3"`
	RetryIndices []uint32     `cramberry:"4"`
}

// ImportAccepted reports a restored state with the given hash.
func ImportAccepted(h AppHash) ImportResult {
	return ImportResult{Status: ImportOK, AppHash: &h}
}

// ImportRejected reports an unusable snapshot.
func ImportRejected(format string, args ...any) ImportResult {
	return ImportResult{Status: ImportReject, Reason: fmt.Sprintf(format, args...)}
}

// ImportRetry asks for the listed chunks again.
func ImportRetry(indices []uint32) ImportResult {
	return ImportResult{Status: ImportRetryChunks, RetryIndices: indices}
}
