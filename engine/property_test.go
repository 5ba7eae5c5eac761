package engine_test

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/blockberries/kudos/engine"
	"github.com/blockberries/kudos/types"
)

func TestISqrt(t *testing.T) {
	cases := map[uint64]uint64{
		0: 0, 1: 1, 2: 1, 3: 1, 4: 2, 10: 3, 16: 4, 99: 9, 100: 10, 500: 22,
		1<<62 - 1:  1<<31 - 1,
		^uint64(0): 1<<32 - 1,
	}
	for in, want := range cases {
		require.Equal(t, want, engine.ISqrt(in), "ISqrt(%d)", in)
	}
}

func TestISqrt_Brackets(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.Uint64().Draw(t, "v")
		r := engine.ISqrt(v)

		hi, lo := bits.Mul64(r, r)
		require.True(t, hi == 0 && lo <= v, "ISqrt(%d)=%d squared exceeds input", v, r)
		hi, lo = bits.Mul64(r+1, r+1)
		require.True(t, hi != 0 || lo > v, "ISqrt(%d)=%d is not the floor", v, r)
	})
}

// Random vote sequences never push a reputation outside [1, Max] and
// never let a voter exceed the round quota.
func TestVotes_StayInBounds(t *testing.T) {
	members := []types.AccountID{alice, bob, carol, account(4)}
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(t, 1000)
		f.addContributors(members...)
		maxVotes := rapid.Uint8Range(1, 255).Draw(rt, "maxVotes")
		f.openRound(100, types.VotesNumber(maxVotes))

		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			from := rapid.SampledFrom(members).Draw(rt, "from")
			to := rapid.SampledFrom(members).Draw(rt, "to")
			sign := rapid.SampledFrom([]types.VoteSign{types.Positive, types.Negative}).Draw(rt, "sign")
			value := rapid.Uint8Range(1, maxVotes).Draw(rt, "value")
			_ = f.vote(from, to, sign, types.VotesNumber(value))

			for _, a := range members {
				rec, err := f.eng.Contributor(a)
				require.NoError(rt, err)
				require.GreaterOrEqual(rt, rec.Reputation, types.Reputation(1))
				require.LessOrEqual(rt, rec.VotesSubmitted, types.VotesNumber(maxVotes))
			}
		}
	})
}
