package types

// Balance is an amount of the host chain's native value.
type Balance uint64

// Round is a time-boxed voting period with a fund to distribute.
type Round struct {
	// Name of the round.
	Name string `cramberry:"1"`
	// Funds distributed when the round closes.
	Value Balance `cramberry:"2"`
	// Vote units each contributor may cast in the round.
	MaxVotes VotesNumber `cramberry:"3"`
	// Voting closes at this instant; the round may be closed from then on.
	FinishAt Timestamp `cramberry:"4"`
	// Set once the distribution has completed.
	IsFinished bool `cramberry:"5"`
}

// Accepts reports whether votes are accepted at now.
func (r Round) Accepts(now Timestamp) bool {
	return !r.IsFinished && now.Before(r.FinishAt)
}

// RoundParams are the admin-supplied parameters of a new round.
type RoundParams struct {
	Name     string      `cramberry:"1"`
	Value    Balance     `cramberry:"2"`
	MaxVotes VotesNumber `cramberry:"3"`
	FinishAt Timestamp   `cramberry:"4"`
}

// Tier is the rank of a proof-of-contribution token.
type Tier uint8

const (
	TierGold   Tier = 1
	TierSilver Tier = 2
	TierBronze Tier = 3
)

// Tiers lists the tiers in award order.
var Tiers = [...]Tier{TierGold, TierSilver, TierBronze}

func (t Tier) String() string {
	switch t {
	case TierGold:
		return "gold"
	case TierSilver:
		return "silver"
	case TierBronze:
		return "bronze"
	default:
		return "unranked"
	}
}

// Token is a minted proof-of-contribution token.
type Token struct {
	ID      uint64    `cramberry:"1"`
	Owner   AccountID `cramberry:"2"`
	Tier    Tier      `cramberry:"3"`
	RoundID RoundID   `cramberry:"4"`
}
