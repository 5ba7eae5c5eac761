package app

import (
	"github.com/blockberries/kudos/types"
)

// ---------------------------------------------------------------------------
// Transaction builders
// ---------------------------------------------------------------------------

func mustEncode(c types.Call) types.Tx {
	tx, err := c.Encode()
	if err != nil {
		panic(err)
	}
	return tx
}

// AddAdminTx creates an add_admin call.
func AddAdminTx(caller, target types.AccountID) types.Tx {
	return mustEncode(types.Call{Caller: caller, Method: types.MethodAddAdmin, Target: target})
}

// RemoveAdminTx creates a remove_admin call.
func RemoveAdminTx(caller, target types.AccountID) types.Tx {
	return mustEncode(types.Call{Caller: caller, Method: types.MethodRemoveAdmin, Target: target})
}

// AddContributorTx creates an add_contributor call.
func AddContributorTx(caller, target types.AccountID) types.Tx {
	return mustEncode(types.Call{Caller: caller, Method: types.MethodAddContributor, Target: target})
}

// RemoveContributorTx creates a remove_contributor call.
func RemoveContributorTx(caller, target types.AccountID) types.Tx {
	return mustEncode(types.Call{Caller: caller, Method: types.MethodRemoveContributor, Target: target})
}

// OpenRoundTx creates an open_round call.
func OpenRoundTx(caller types.AccountID, p types.RoundParams) types.Tx {
	return mustEncode(types.Call{Caller: caller, Method: types.MethodOpenRound, Round: &p})
}

// CloseRoundTx creates a close_round call.
func CloseRoundTx(caller types.AccountID) types.Tx {
	return mustEncode(types.Call{Caller: caller, Method: types.MethodCloseRound})
}

// VoteTx creates a submit_vote call.
func VoteTx(caller, receiver types.AccountID, sign types.VoteSign, value types.VotesNumber) types.Tx {
	return mustEncode(types.Call{
		Caller: caller,
		Method: types.MethodSubmitVote,
		Target: receiver,
		Vote:   &types.Vote{Sign: sign, Value: value},
	})
}

// FundTx creates a fund call moving amount from caller to the treasury.
func FundTx(caller types.AccountID, amount types.Balance) types.Tx {
	return mustEncode(types.Call{Caller: caller, Method: types.MethodFund, Amount: amount})
}

// TestAccount creates a deterministic test account from an index.
func TestAccount(n byte) types.AccountID {
	var a types.AccountID
	a[0] = n
	a[31] = n
	return a
}
