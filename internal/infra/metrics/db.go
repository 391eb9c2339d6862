package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(dbPoolStats) }

var dbPoolStats = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "db_pool_stats",
		Help: "Current state of the database connection pool.",
	},
	[]string{"store", "state"}, // store: 'postgres', 'sqlite'; state: 'total', 'idle', 'in_use'
)

// PoolStats is the driver-neutral snapshot both stores can report.
type PoolStats struct {
	Total int32
	Idle  int32
	InUse int32
}

func SetDBPoolStats(store string, s PoolStats) {
	store = norm(store)
	dbPoolStats.WithLabelValues(store, "total").Set(float64(s.Total))
	dbPoolStats.WithLabelValues(store, "idle").Set(float64(s.Idle))
	dbPoolStats.WithLabelValues(store, "in_use").Set(float64(s.InUse))
}
