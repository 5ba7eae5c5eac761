package engine

import (
	"errors"
	"fmt"

	"github.com/blockberries/kudos/store"
	"github.com/blockberries/kudos/types"
)

var (
	// ErrAdministrativeFunction is returned when a non-admin calls an
	// admin-only operation.
	ErrAdministrativeFunction = errors.New("administrative function")
	ErrOnlyContributorCanVote = errors.New("only contributors can vote")
	ErrCannotRemoveYourself   = errors.New("cannot remove yourself")
	ErrCannotVoteItself       = errors.New("cannot vote for yourself")
	ErrMemberAlreadyExists    = errors.New("member already exists")
	ErrMemberNotExist         = errors.New("member does not exist")
	ErrIsAnActiveRound        = errors.New("a round is active")
	ErrIsNoActiveRound        = errors.New("no active round")
	ErrNotYetFinishedRound    = errors.New("round has not finished yet")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrZeroVote               = errors.New("vote value must be positive")
	ErrInvalidVoteSign        = errors.New("invalid vote sign")
	// ErrNftNotSent is returned when a tier token could not be minted.
	// The minter's error is reachable with errors.Unwrap but is not part
	// of the message.
	ErrNftNotSent = errors.New("nft not sent")
	// ErrAlreadyBootstrapped is returned by Bootstrap on a registry that
	// already has members.
	ErrAlreadyBootstrapped = errors.New("registry already bootstrapped")
)

// RoundParamError rejects the parameters of a new round.
type RoundParamError struct {
	Reason string
}

func (e *RoundParamError) Error() string {
	return "invalid round parameter: " + e.Reason
}

// VoteLimitError rejects a single vote larger than the round allows.
type VoteLimitError struct {
	Limit types.VotesNumber
}

func (e *VoteLimitError) Error() string {
	return fmt.Sprintf("vote exceeds the round limit of %d", e.Limit)
}

// QuotaError rejects a vote that would take the voter past the round
// quota. Remaining is what the voter may still cast.
type QuotaError struct {
	Remaining types.VotesNumber
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("vote exceeds your remaining quota of %d", e.Remaining)
}

// OverflowError reports an arithmetic overflow on A and B.
type OverflowError struct {
	A, B uint64
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("arithmetic overflow: %d, %d", e.A, e.B)
}

// TransferError reports a payout the ledger refused.
type TransferError struct {
	Account types.AccountID
	Amount  types.Balance
	Err     error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer of %d to %s failed: %v", e.Amount, e.Account, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

type nftError struct {
	cause error
}

func (e *nftError) Error() string { return ErrNftNotSent.Error() }

func (e *nftError) Unwrap() []error { return []error{ErrNftNotSent, e.cause} }

// Result codes reported in transaction outcomes. 0 is success.
const (
	CodeOK uint32 = iota
	CodeAdministrativeFunction
	CodeOnlyContributorCanVote
	CodeCannotRemoveYourself
	CodeCannotVoteItself
	CodeMemberAlreadyExists
	CodeMemberNotExist
	CodeIsAnActiveRound
	CodeIsNoActiveRound
	CodeNotYetFinishedRound
	CodeInvalidRoundParameter
	CodeExceedsVoteLimit
	CodeExceedsYourVoteLimit
	CodeZeroVote
	CodeInvalidVoteSign
	CodeInsufficientFunds
	CodeOverflow
	CodeTransferFailed
	CodeNftNotSent
	CodeAlreadyBootstrapped
	CodeCorruptState
	// CodeInternal covers errors that do not belong to the engine.
	CodeInternal uint32 = 100
)

var sentinelCodes = []struct {
	err  error
	code uint32
}{
	{ErrAdministrativeFunction, CodeAdministrativeFunction},
	{ErrOnlyContributorCanVote, CodeOnlyContributorCanVote},
	{ErrCannotRemoveYourself, CodeCannotRemoveYourself},
	{ErrCannotVoteItself, CodeCannotVoteItself},
	{ErrMemberAlreadyExists, CodeMemberAlreadyExists},
	{ErrMemberNotExist, CodeMemberNotExist},
	{ErrIsAnActiveRound, CodeIsAnActiveRound},
	{ErrIsNoActiveRound, CodeIsNoActiveRound},
	{ErrNotYetFinishedRound, CodeNotYetFinishedRound},
	{ErrZeroVote, CodeZeroVote},
	{ErrInvalidVoteSign, CodeInvalidVoteSign},
	{ErrInsufficientFunds, CodeInsufficientFunds},
	{ErrNftNotSent, CodeNftNotSent},
	{ErrAlreadyBootstrapped, CodeAlreadyBootstrapped},
}

// Code maps err to its result code.
func Code(err error) uint32 {
	if err == nil {
		return CodeOK
	}
	var (
		param    *RoundParamError
		limit    *VoteLimitError
		quota    *QuotaError
		overflow *OverflowError
		transfer *TransferError
		corrupt  *store.CorruptError
	)
	switch {
	case errors.As(err, &param):
		return CodeInvalidRoundParameter
	case errors.As(err, &limit):
		return CodeExceedsVoteLimit
	case errors.As(err, &quota):
		return CodeExceedsYourVoteLimit
	case errors.As(err, &overflow):
		return CodeOverflow
	case errors.As(err, &transfer):
		return CodeTransferFailed
	case errors.As(err, &corrupt):
		return CodeCorruptState
	}
	for _, sc := range sentinelCodes {
		if errors.Is(err, sc.err) {
			return sc.code
		}
	}
	return CodeInternal
}
