package suggester

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveSuggesters is the number of live suggesters.
	ActiveSuggesters = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "suggest_suggesters_active",
			Help: "Number of live query suggesters",
		},
	)

	// SuggestersBuilt counts suggester constructions by outcome.
	SuggestersBuilt = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suggest_suggesters_built_total",
			Help: "Total number of query suggester constructions",
		},
		[]string{"outcome"},
	)

	// Teardowns counts released suggesters by outcome (ok, error, panic).
	Teardowns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suggest_suggester_teardowns_total",
			Help: "Total number of query suggester teardowns",
		},
		[]string{"outcome"},
	)
)
