package types

// VoteSign selects whether a vote raises or lowers the receiver's
// reputation.
type VoteSign uint8

const (
	Positive VoteSign = 1
	Negative VoteSign = 2
)

func (s VoteSign) String() string {
	switch s {
	case Positive:
		return "positive"
	case Negative:
		return "negative"
	default:
		return "invalid"
	}
}

// Valid reports whether s is one of the defined signs.
func (s VoteSign) Valid() bool { return s == Positive || s == Negative }

// Vote is a signed number of vote units cast on another contributor.
type Vote struct {
	Sign  VoteSign    `cramberry:"1"`
	Value VotesNumber `cramberry:"2"`
}
