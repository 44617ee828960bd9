package database

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// poolStats is the subset of pgxpool.Stat exported as metrics.
type poolStats struct {
	acquired, idle, total, max float64
	acquires, emptyAcquires    float64
	acquireSeconds             float64
}

func statsOf(pool *pgxpool.Pool) func() poolStats {
	return func() poolStats {
		s := pool.Stat()
		return poolStats{
			acquired:       float64(s.AcquiredConns()),
			idle:           float64(s.IdleConns()),
			total:          float64(s.TotalConns()),
			max:            float64(s.MaxConns()),
			acquires:       float64(s.AcquireCount()),
			emptyAcquires:  float64(s.EmptyAcquireCount()),
			acquireSeconds: s.AcquireDuration().Seconds(),
		}
	}
}

type poolMetric struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(poolStats) float64
}

// PoolStatsCollector exports connection pool statistics of the tenant
// config store. Values are read from the pool on every scrape.
type PoolStatsCollector struct {
	stats   func() poolStats
	service string
	metrics []poolMetric
}

// NewPoolStatsCollector creates a collector for pool.
func NewPoolStatsCollector(pool *pgxpool.Pool, service string) *PoolStatsCollector {
	return newPoolStatsCollector(statsOf(pool), service)
}

func newPoolStatsCollector(stats func() poolStats, service string) *PoolStatsCollector {
	m := func(name, help string, kind prometheus.ValueType, value func(poolStats) float64) poolMetric {
		return poolMetric{
			desc:  prometheus.NewDesc("ocs_db_pool_"+name, help, []string{"service"}, nil),
			kind:  kind,
			value: value,
		}
	}
	return &PoolStatsCollector{
		stats:   stats,
		service: service,
		metrics: []poolMetric{
			m("acquired_connections", "Connections currently checked out of the pool.", prometheus.GaugeValue,
				func(s poolStats) float64 { return s.acquired }),
			m("idle_connections", "Connections currently idle in the pool.", prometheus.GaugeValue,
				func(s poolStats) float64 { return s.idle }),
			m("total_connections", "Connections currently open.", prometheus.GaugeValue,
				func(s poolStats) float64 { return s.total }),
			m("max_connections", "Configured pool size.", prometheus.GaugeValue,
				func(s poolStats) float64 { return s.max }),
			m("acquires_total", "Successful connection acquires.", prometheus.CounterValue,
				func(s poolStats) float64 { return s.acquires }),
			m("empty_acquires_total", "Acquires that waited because the pool was empty.", prometheus.CounterValue,
				func(s poolStats) float64 { return s.emptyAcquires }),
			m("acquire_wait_seconds_total", "Time spent waiting for a connection.", prometheus.CounterValue,
				func(s poolStats) float64 { return s.acquireSeconds }),
		},
	}
}

// Describe implements prometheus.Collector.
func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
}

// Collect implements prometheus.Collector.
func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	for _, m := range c.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.kind, m.value(s), c.service)
	}
}

// RegisterPoolMetrics registers a PoolStatsCollector with the default registry.
func RegisterPoolMetrics(pool *pgxpool.Pool, service string) {
	prometheus.MustRegister(NewPoolStatsCollector(pool, service))
}
