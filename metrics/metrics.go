// Package metrics exports committed kudos activity to Prometheus.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/blockberries/kudos/app"
	"github.com/blockberries/kudos/engine"
)

const namespace = "kudos"

const (
	subsystemChain  = "chain"
	subsystemRounds = "rounds"
	subsystemVotes  = "votes"
)

const (
	LabelKind = "kind"
	LabelSign = "sign"
	LabelTier = "tier"
	LabelRole = "role"
)

var (
	_ engine.EventSink = (*Collector)(nil)
	_ app.Sink         = (*Collector)(nil)
)

// Collector turns committed blocks and engine events into metrics.
type Collector struct {
	height         prometheus.Gauge
	blocks         prometheus.Counter
	events         *prometheus.CounterVec
	members        *prometheus.GaugeVec
	currentRound   prometheus.Gauge
	activeRound    prometheus.Gauge
	roundsOpened   prometheus.Counter
	roundsClosed   prometheus.Counter
	roundValue     prometheus.Gauge
	distributed    prometheus.Counter
	remainder      prometheus.Gauge
	payouts        prometheus.Counter
	tokens         *prometheus.CounterVec
	votes          *prometheus.CounterVec
	voteUnits      *prometheus.CounterVec
	reputationSeen prometheus.Histogram
	funded         prometheus.Counter
}

// NewCollector registers the kudos metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		height: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemChain,
			Name:      "committed_height",
			Help:      "the last committed block height",
		}),
		blocks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemChain,
			Name:      "committed_blocks_total",
			Help:      "the number of committed blocks",
		}),
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemChain,
			Name:      "events_total",
			Help:      "the number of committed events by kind",
		}, []string{LabelKind}),
		members: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "members_delta",
			Help:      "members added minus members removed since start, by role",
		}, []string{LabelRole}),
		currentRound: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemRounds,
			Name:      "current_id",
			Help:      "the id of the most recently opened round",
		}),
		activeRound: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemRounds,
			Name:      "active",
			Help:      "1 while a round is open, 0 otherwise",
		}),
		roundsOpened: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemRounds,
			Name:      "opened_total",
			Help:      "the number of rounds opened",
		}),
		roundsClosed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemRounds,
			Name:      "closed_total",
			Help:      "the number of rounds closed",
		}),
		roundValue: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemRounds,
			Name:      "value",
			Help:      "the fund of the most recently opened round",
		}),
		distributed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemRounds,
			Name:      "distributed_total",
			Help:      "the total amount paid out to contributors",
		}),
		remainder: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemRounds,
			Name:      "last_remainder",
			Help:      "the undistributed remainder of the last closed round",
		}),
		payouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemRounds,
			Name:      "payouts_total",
			Help:      "the number of payouts sent",
		}),
		tokens: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemRounds,
			Name:      "tokens_awarded_total",
			Help:      "the number of tier tokens minted",
		}, []string{LabelTier}),
		votes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemVotes,
			Name:      "cast_total",
			Help:      "the number of accepted votes by sign",
		}, []string{LabelSign}),
		voteUnits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemVotes,
			Name:      "units_total",
			Help:      "the sum of accepted vote values by sign",
		}, []string{LabelSign}),
		reputationSeen: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemVotes,
			Name:      "target_reputation",
			Help:      "the reputation of vote targets after each vote",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		funded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "treasury_funded_total",
			Help:      "the total amount moved into the treasury by fund calls",
		}),
	}
}

// CommitBlock records a committed block and its events.
func (c *Collector) CommitBlock(_ context.Context, b app.CommittedBlock) error {
	c.height.Set(float64(b.Height))
	c.blocks.Inc()
	for _, ev := range b.Events {
		c.Emit(ev)
	}
	return nil
}

// Emit records a single event.
func (c *Collector) Emit(ev engine.Event) {
	c.events.WithLabelValues(ev.Kind()).Inc()

	switch e := ev.(type) {
	case engine.RoundOpened:
		c.roundsOpened.Inc()
		c.currentRound.Set(float64(e.RoundID))
		c.activeRound.Set(1)
		c.roundValue.Set(float64(e.Round.Value))
	case engine.RoundClosed:
		c.roundsClosed.Inc()
		c.activeRound.Set(0)
		c.distributed.Add(float64(e.Distributed))
		c.remainder.Set(float64(e.Remainder))
	case engine.VoteCast:
		sign := e.Sign.String()
		c.votes.WithLabelValues(sign).Inc()
		c.voteUnits.WithLabelValues(sign).Add(float64(e.Value))
		c.reputationSeen.Observe(float64(e.Reputation))
	case engine.MemberAdded:
		c.members.WithLabelValues(e.Role.String()).Inc()
	case engine.MemberRemoved:
		c.members.WithLabelValues(e.Role.String()).Dec()
	case engine.PayoutSent:
		c.payouts.Inc()
	case engine.TokenAwarded:
		c.tokens.WithLabelValues(e.Tier.String()).Inc()
	case app.Funded:
		c.funded.Add(float64(e.Amount))
	}
}
