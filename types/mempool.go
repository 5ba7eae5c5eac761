package types

// MempoolContext says why a transaction is being checked.
type MempoolContext uint8

const (
	MempoolFirstSeen MempoolContext = 1
	// Re-checked after a commit changed the registry.
	MempoolRevalidation MempoolContext = 2
)

func (c MempoolContext) String() string {
	switch c {
	case MempoolFirstSeen:
		return "first_seen"
	case MempoolRevalidation:
		return "revalidation"
	default:
		return "unknown"
	}
}

// GateVerdict is the admission decision for a transaction. Admission
// only checks the call envelope; engine rules run at execution.
type GateVerdict struct {
	// Zero admits the transaction.
	Code uint32 `cramberry:"1"`
	Info string `cramberry:"2"`
	// Higher runs first within a block.
	Priority int64 `cramberry:"3"`
	// Base58 caller, for same-sender ordering.
	Sender string `cramberry:"4"`
}

// Accepted reports whether the transaction was admitted.
func (v GateVerdict) Accepted() bool { return v.Code == 0 }

// Rejected returns a verdict refusing admission with code.
func Rejected(code uint32, err error) GateVerdict {
	return GateVerdict{Code: code, Info: err.Error()}
}
