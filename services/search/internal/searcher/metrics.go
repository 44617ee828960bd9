package searcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheLookups counts searcher cache lookups by result (hit or miss).
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_searcher_cache_lookups_total",
			Help: "Total number of searcher cache lookups",
		},
		[]string{"result"},
	)

	// SearchersBuilt counts constructed searchers.
	SearchersBuilt = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "search_searchers_built_total",
			Help: "Total number of searchers constructed",
		},
	)

	// SearchersEvicted counts searchers removed from the cache by reason.
	SearchersEvicted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_searchers_evicted_total",
			Help: "Total number of searchers evicted from the cache",
		},
		[]string{"reason"},
	)
)
