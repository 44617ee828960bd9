package indexer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DocumentsIndexed counts documents written by the indexer by operation
	// (import, upsert or delete).
	DocumentsIndexed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_indexer_documents_total",
			Help: "Total number of documents written by the indexer",
		},
		[]string{"operation"},
	)

	// ImportSessions counts finished import sessions by outcome (done,
	// cancelled or conflict).
	ImportSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_indexer_sessions_total",
			Help: "Total number of import sessions by outcome",
		},
		[]string{"outcome"},
	)

	// ActiveSessions is the number of open import sessions.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "search_indexer_active_sessions",
			Help: "Number of open import sessions",
		},
	)
)
