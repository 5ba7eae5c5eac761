package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/blockberries/kudos/types"
)

func member(n byte, rep types.Reputation) types.Contributor {
	var a types.AccountID
	a[0] = n
	return types.Contributor{Account: a, Record: types.ContributorRecord{RoundID: 1, Reputation: rep}}
}

func TestApplyVote_Clamp(t *testing.T) {
	require.Equal(t, types.Reputation(4), applyVote(1, 1, types.Vote{Sign: types.Positive, Value: 3}))
	require.Equal(t, types.Reputation(1), applyVote(3, 100, types.Vote{Sign: types.Negative, Value: 1}))
	require.Equal(t, types.MaxReputation, applyVote(types.MaxReputation-1, types.MaxReputation, types.Vote{Sign: types.Positive, Value: 255}))
}

func TestApplyVote_Bounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rep := types.Reputation(rapid.Uint32Range(1, uint32(types.MaxReputation)).Draw(t, "rep"))
		voter := types.Reputation(rapid.Uint32Range(1, uint32(types.MaxReputation)).Draw(t, "voter"))
		sign := rapid.SampledFrom([]types.VoteSign{types.Positive, types.Negative}).Draw(t, "sign")
		value := types.VotesNumber(rapid.Uint8Range(1, 255).Draw(t, "value"))

		got := applyVote(rep, voter, types.Vote{Sign: sign, Value: value})
		require.GreaterOrEqual(t, got, types.Reputation(1))
		if sign == types.Positive {
			require.GreaterOrEqual(t, got, rep)
		} else {
			require.LessOrEqual(t, got, rep)
		}
	})
}

func TestPlanSettlement_SharesNeverExceedValue(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "n")
		members := make([]types.Contributor, n)
		for i := range members {
			rep := types.Reputation(rapid.Uint32Range(1, uint32(types.MaxReputation)).Draw(t, "rep"))
			members[i] = member(byte(i+1), rep)
		}
		value := types.Balance(rapid.Uint64().Draw(t, "value"))

		st, err := planSettlement(1, value, members, false)
		require.NoError(t, err)
		require.Equal(t, value, st.Distributed+st.Remainder)
		require.Len(t, st.Payouts, n)
		require.Len(t, st.Awards, min(n, 3))
	})
}

func TestPlanSettlement_Ranking(t *testing.T) {
	members := []types.Contributor{member(1, 5), member(2, 10), member(3, 1), member(4, 10)}
	st, err := planSettlement(1, 2600, members, false)
	require.NoError(t, err)

	require.Equal(t, types.Balance(500), st.Payouts[0].Amount)
	require.Equal(t, types.Balance(1000), st.Payouts[1].Amount)
	require.Equal(t, types.Balance(100), st.Payouts[2].Amount)
	require.Equal(t, types.Balance(1000), st.Payouts[3].Amount)

	// Ties resolve to the later account in key order.
	require.Equal(t, []Award{
		{Account: members[3].Account, Tier: types.TierGold},
		{Account: members[1].Account, Tier: types.TierSilver},
		{Account: members[0].Account, Tier: types.TierBronze},
	}, st.Awards)
}
