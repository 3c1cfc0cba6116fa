package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(dbPoolConns, dbAcquireWaitSeconds) }

var (
	dbPoolConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_pool_connections",
			Help: "Postgres pool connections by state.",
		},
		[]string{"state"}, // total, idle, acquired, max
	)
	dbAcquireWaitSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_pool_acquire_wait_seconds",
			Help: "Cumulative time spent waiting for a pooled connection.",
		},
	)
)

// PoolStats is the subset of pgxpool.Stat the gauges need.
type PoolStats struct {
	Total, Idle, Acquired, Max int32
	AcquireWaitSeconds         float64
}

func SetDBPoolStats(s PoolStats) {
	dbPoolConns.WithLabelValues("total").Set(float64(s.Total))
	dbPoolConns.WithLabelValues("idle").Set(float64(s.Idle))
	dbPoolConns.WithLabelValues("acquired").Set(float64(s.Acquired))
	dbPoolConns.WithLabelValues("max").Set(float64(s.Max))
	dbAcquireWaitSeconds.Set(s.AcquireWaitSeconds)
}
