// Package archive persists committed kudos activity to a relational
// database for off-chain reporting.
package archive

import (
	"time"

	"github.com/google/uuid"
)

// Block is one committed block.
type Block struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Height     uint64    `gorm:"uniqueIndex;not null"`
	Time       time.Time `gorm:"index"`
	EventCount int
	CreatedAt  time.Time
}

// Round is a round as it was opened.
type Round struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoundID   uint32    `gorm:"uniqueIndex;not null"`
	Name      string    `gorm:"size:256"`
	Value     uint64
	MaxVotes  uint8
	FinishAt  time.Time `gorm:"index"`
	OpenedBy  string    `gorm:"size:64;index"`
	Height    uint64    `gorm:"index"`
	CreatedAt time.Time
}

// Settlement is the outcome of a closed round.
type Settlement struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoundID         uint32    `gorm:"uniqueIndex;not null"`
	TotalVotes      uint64
	TotalReputation uint64
	Distributed     uint64
	Remainder       uint64
	Height          uint64 `gorm:"index"`
	CreatedAt       time.Time
}

// Vote is one accepted vote.
type Vote struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoundID    uint32    `gorm:"index"`
	From       string    `gorm:"size:64;index"`
	To         string    `gorm:"size:64;index"`
	Sign       string    `gorm:"size:16"` // "positive" or "negative"
	Value      uint8
	Reputation uint32
	Height     uint64 `gorm:"index"`
	CreatedAt  time.Time
}

// Payout is one share transferred at close.
type Payout struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoundID   uint32    `gorm:"index"`
	Account   string    `gorm:"size:64;index"`
	Amount    uint64
	Height    uint64 `gorm:"index"`
	CreatedAt time.Time
}

// Award is one tier token minted at close.
type Award struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoundID   uint32    `gorm:"index"`
	Account   string    `gorm:"size:64;index"`
	Tier      string    `gorm:"size:16;index"`
	Height    uint64    `gorm:"index"`
	CreatedAt time.Time
}

// Membership is a role grant or revocation.
type Membership struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Account   string    `gorm:"size:64;index"`
	Role      string    `gorm:"size:16;index"`
	Granted   bool      // false for removals
	By        string    `gorm:"size:64"`
	Height    uint64    `gorm:"index"`
	CreatedAt time.Time
}

// Funding is a transfer into the treasury.
type Funding struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	From      string    `gorm:"size:64;index"`
	Amount    uint64
	Height    uint64 `gorm:"index"`
	CreatedAt time.Time
}

func allModels() []any {
	return []any{
		&Block{},
		&Round{},
		&Settlement{},
		&Vote{},
		&Payout{},
		&Award{},
		&Membership{},
		&Funding{},
	}
}
