package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	actionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registration_actions_total",
			Help: "Register and unregister actions by outcome (success, failure, rejected)",
		},
		[]string{"action", "outcome"},
	)

	actionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "registration_action_duration_seconds",
			Help:    "Time from dispatch to settlement of a registration action",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"action"},
	)

	overlayEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registration_overlay_entries",
			Help: "Optimistic overlay entries currently held across all sessions",
		},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bff_sessions_active",
			Help: "User sessions currently held in memory",
		},
	)
)
