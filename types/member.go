package types

import "fmt"

// Role is the membership role of an account.
type Role uint8

const (
	// RoleNone is reported for accounts that are not members.
	RoleNone Role = 0
	// RoleAdmin may manage members and rounds. Admins do not vote.
	RoleAdmin Role = 1
	// RoleContributor may vote and receive round funds.
	RoleContributor Role = 2
)

func (r Role) String() string {
	switch r {
	case RoleNone:
		return "none"
	case RoleAdmin:
		return "admin"
	case RoleContributor:
		return "contributor"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(r))
	}
}

// RoundID identifies a round. Rounds are numbered from 1; 0 means
// no round has been opened yet.
type RoundID uint32

// Reputation is a contributor's score within a round. Once a record
// has been touched in a round it is never below 1.
type Reputation uint32

// MaxReputation is the ceiling reputation is clamped to.
const MaxReputation = Reputation(^uint32(0))

// VotesNumber counts vote units.
type VotesNumber uint8

// ContributorRecord is a contributor's state for the round named by
// RoundID. A record whose RoundID lags the current round is stale and
// reads as a fresh record for the current round.
type ContributorRecord struct {
	RoundID        RoundID     `cramberry:"1"`
	Reputation     Reputation  `cramberry:"2"`
	VotesSubmitted VotesNumber `cramberry:"3"`
}

// Refreshed returns the record as seen from round id: unchanged if it
// already belongs to id, otherwise reset to reputation 1 and no votes.
// A record that was never initialized (reputation 0) is always reset.
func (c ContributorRecord) Refreshed(id RoundID) ContributorRecord {
	if c.RoundID == id && c.Reputation > 0 {
		return c
	}
	return ContributorRecord{RoundID: id, Reputation: 1}
}

// Contributor pairs an account with its record.
type Contributor struct {
	Account AccountID         `cramberry:"1"`
	Record  ContributorRecord `cramberry:"2"`
}
