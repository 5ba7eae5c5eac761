package archive

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blockberries/kudos/app"
	"github.com/blockberries/kudos/engine"
)

// rowSpace namespaces the deterministic row ids so replaying a block
// after a restart produces the same keys.
var rowSpace = uuid.MustParse("3f0c7d0e-5d5b-4d1a-9a57-6b7f1e0c2a91")

func rowID(height uint64, index int, kind string) uuid.UUID {
	return uuid.NewSHA1(rowSpace, []byte(fmt.Sprintf("%d/%d/%s", height, index, kind)))
}

// Batch holds the rows derived from one committed block.
type Batch struct {
	Block       Block
	Rounds      []Round
	Settlements []Settlement
	Votes       []Vote
	Payouts     []Payout
	Awards      []Award
	Memberships []Membership
	Fundings    []Funding
}

// Rows maps a committed block to archive rows. Unknown events are
// skipped.
func Rows(b app.CommittedBlock) Batch {
	batch := Batch{
		Block: Block{
			ID:         rowID(b.Height, -1, "block"),
			Height:     b.Height,
			Time:       b.Time.ToTime(),
			EventCount: len(b.Events),
		},
	}
	for i, ev := range b.Events {
		id := rowID(b.Height, i, ev.Kind())
		switch e := ev.(type) {
		case engine.RoundOpened:
			batch.Rounds = append(batch.Rounds, Round{
				ID:       id,
				RoundID:  uint32(e.RoundID),
				Name:     e.Round.Name,
				Value:    uint64(e.Round.Value),
				MaxVotes: uint8(e.Round.MaxVotes),
				FinishAt: e.Round.FinishAt.ToTime(),
				OpenedBy: e.By.String(),
				Height:   b.Height,
			})
		case engine.RoundClosed:
			batch.Settlements = append(batch.Settlements, Settlement{
				ID:              id,
				RoundID:         uint32(e.RoundID),
				TotalVotes:      e.TotalVotes,
				TotalReputation: e.TotalReputation,
				Distributed:     uint64(e.Distributed),
				Remainder:       uint64(e.Remainder),
				Height:          b.Height,
			})
		case engine.VoteCast:
			batch.Votes = append(batch.Votes, Vote{
				ID:         id,
				RoundID:    uint32(e.RoundID),
				From:       e.From.String(),
				To:         e.To.String(),
				Sign:       e.Sign.String(),
				Value:      uint8(e.Value),
				Reputation: uint32(e.Reputation),
				Height:     b.Height,
			})
		case engine.PayoutSent:
			batch.Payouts = append(batch.Payouts, Payout{
				ID:      id,
				RoundID: uint32(e.RoundID),
				Account: e.Account.String(),
				Amount:  uint64(e.Amount),
				Height:  b.Height,
			})
		case engine.TokenAwarded:
			batch.Awards = append(batch.Awards, Award{
				ID:      id,
				RoundID: uint32(e.RoundID),
				Account: e.Account.String(),
				Tier:    e.Tier.String(),
				Height:  b.Height,
			})
		case engine.MemberAdded:
			batch.Memberships = append(batch.Memberships, Membership{
				ID:      id,
				Account: e.Account.String(),
				Role:    e.Role.String(),
				Granted: true,
				By:      e.By.String(),
				Height:  b.Height,
			})
		case engine.MemberRemoved:
			batch.Memberships = append(batch.Memberships, Membership{
				ID:      id,
				Account: e.Account.String(),
				Role:    e.Role.String(),
				By:      e.By.String(),
				Height:  b.Height,
			})
		case app.Funded:
			batch.Fundings = append(batch.Fundings, Funding{
				ID:     id,
				From:   e.From.String(),
				Amount: uint64(e.Amount),
				Height: b.Height,
			})
		}
	}
	return batch
}

// Sink writes every committed block to the archive database.
type Sink struct {
	db  *gorm.DB
	log zerolog.Logger
}

var _ app.Sink = (*Sink)(nil)

// NewSink returns a sink writing to db.
func NewSink(db *gorm.DB, log zerolog.Logger) *Sink {
	return &Sink{db: db, log: log.With().Str("component", "archive").Logger()}
}

// CommitBlock stores the block's rows in one database transaction.
// Rows already present are left untouched.
func (s *Sink) CommitBlock(ctx context.Context, b app.CommittedBlock) error {
	batch := Rows(b)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(skipExisting).Create(&batch.Block).Error; err != nil {
			return err
		}
		return createAll(tx,
			batch.Rounds,
			batch.Settlements,
			batch.Votes,
			batch.Payouts,
			batch.Awards,
			batch.Memberships,
			batch.Fundings,
		)
	})
	if err != nil {
		return fmt.Errorf("archive block %d: %w", b.Height, err)
	}
	s.log.Debug().Uint64("height", b.Height).Int("events", len(b.Events)).Msg("block archived")
	return nil
}

var skipExisting = clause.OnConflict{DoNothing: true}

func createAll(tx *gorm.DB, tables ...any) error {
	for _, rows := range tables {
		if isEmpty(rows) {
			continue
		}
		if err := tx.Clauses(skipExisting).CreateInBatches(rows, 500).Error; err != nil {
			return err
		}
	}
	return nil
}

func isEmpty(rows any) bool {
	switch r := rows.(type) {
	case []Round:
		return len(r) == 0
	case []Settlement:
		return len(r) == 0
	case []Vote:
		return len(r) == 0
	case []Payout:
		return len(r) == 0
	case []Award:
		return len(r) == 0
	case []Membership:
		return len(r) == 0
	case []Funding:
		return len(r) == 0
	}
	return true
}
