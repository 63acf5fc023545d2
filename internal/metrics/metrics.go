// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GamesFinished counts finished games.
	// Labels: mode ("two-human", "computer"), outcome ("red", "orange", "draw")
	GamesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripptrapp_games_finished_total",
		Help: "Finished games by mode and outcome",
	}, []string{"mode", "outcome"})

	ComputerMoves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tripptrapp_computer_moves_total",
		Help: "Moves committed by the computer",
	})

	// StaleComputerMoves counts deliveries discarded after a reset or mode change.
	StaleComputerMoves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tripptrapp_computer_moves_stale_total",
		Help: "Scheduled computer moves discarded because the game was reset",
	})

	SearchNodes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tripptrapp_search_nodes",
		Help:    "Minimax nodes visited per move selection",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	})

	SearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tripptrapp_search_duration_seconds",
		Help:    "Move selection duration",
		Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
	})

	// RejectedIntents counts click intents that left the game unchanged.
	// Labels: reason ("occupied", "invalid_cell", "thinking", "finished", "closed")
	RejectedIntents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripptrapp_rejected_intents_total",
		Help: "Click intents rejected by the turn controller",
	}, []string{"reason"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tripptrapp_active_sessions",
		Help: "Game sessions currently held in memory",
	})
)
