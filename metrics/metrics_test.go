package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/kudos/app"
	"github.com/blockberries/kudos/engine"
	"github.com/blockberries/kudos/types"
)

func TestCollector_CommitBlock(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	var alice types.AccountID
	alice[0] = 1

	err := c.CommitBlock(context.Background(), app.CommittedBlock{
		Height: 7,
		Events: []engine.Event{
			engine.MemberAdded{Account: alice, Role: types.RoleContributor},
			engine.RoundOpened{RoundID: 3, Round: types.Round{Value: 1600}},
			engine.VoteCast{RoundID: 3, Sign: types.Positive, Value: 4, Reputation: 5},
			engine.VoteCast{RoundID: 3, Sign: types.Negative, Value: 2, Reputation: 3},
			engine.PayoutSent{RoundID: 3, Account: alice, Amount: 1000},
			engine.TokenAwarded{RoundID: 3, Account: alice, Tier: types.TierGold},
			engine.RoundClosed{RoundID: 3, Distributed: 1599, Remainder: 1},
			app.Funded{From: alice, Amount: 50},
		},
	})
	require.NoError(t, err)

	require.Equal(t, 7.0, testutil.ToFloat64(c.height))
	require.Equal(t, 1.0, testutil.ToFloat64(c.blocks))
	require.Equal(t, 2.0, testutil.ToFloat64(c.events.WithLabelValues("vote_cast")))
	require.Equal(t, 3.0, testutil.ToFloat64(c.currentRound))
	require.Equal(t, 0.0, testutil.ToFloat64(c.activeRound))
	require.Equal(t, 1600.0, testutil.ToFloat64(c.roundValue))
	require.Equal(t, 1599.0, testutil.ToFloat64(c.distributed))
	require.Equal(t, 1.0, testutil.ToFloat64(c.remainder))
	require.Equal(t, 4.0, testutil.ToFloat64(c.voteUnits.WithLabelValues("positive")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.votes.WithLabelValues("negative")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.tokens.WithLabelValues(types.TierGold.String())))
	require.Equal(t, 1.0, testutil.ToFloat64(c.members.WithLabelValues(types.RoleContributor.String())))
	require.Equal(t, 50.0, testutil.ToFloat64(c.funded))

	families, err := reg.Gather()
	require.NoError(t, err)
	var observed uint64
	for _, mf := range families {
		if mf.GetName() == "kudos_votes_target_reputation" {
			observed = mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	require.Equal(t, uint64(2), observed)
}

func TestServer_Handler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.Emit(engine.RoundOpened{RoundID: 1, Round: types.Round{Value: 10}})

	srv := NewServer(zerolog.Nop(), "127.0.0.1:0", reg)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, endpoint, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.Contains(body, "kudos_rounds_opened_total 1"), body)
	require.True(t, strings.Contains(body, "kudos_rounds_active 1"), body)
}
