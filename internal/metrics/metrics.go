// Package metrics holds the prometheus collectors for the game backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "enigma_sessions_created_total",
		Help: "Number of game sessions created.",
	})

	Turns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enigma_turns_total",
		Help: "Number of conversation turns by end status.",
	}, []string{"status"})

	SessionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enigma_session_outcomes_total",
		Help: "Number of sessions reaching each terminal outcome.",
	}, []string{"outcome"})

	ValidatorCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enigma_validator_calls_total",
		Help: "Validator evaluations by validator and result.",
	}, []string{"validator", "result"})

	UpstreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enigma_upstream_errors_total",
		Help: "Completion provider failures.",
	}, []string{"provider"})

	PersistenceFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "enigma_persistence_failures_total",
		Help: "Session writes that failed or modified nothing.",
	})

	TurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "enigma_turn_duration_seconds",
		Help:    "Wall time of a conversation turn including persistence.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	SessionsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "enigma_sessions_purged_total",
		Help: "Sessions hard-deleted by garbage collection.",
	})
)
