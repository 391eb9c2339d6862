package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(adminActionTotal) }

var adminActionTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "admin_action_total",
		Help: "Tracks administrative registry and ledger changes.",
	},
	[]string{"action", "status"}, // action: 'feature_register', 'feature_enable', 'grant', ...; status: 'ok', 'error'
)

func IncAdminAction(action string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	adminActionTotal.WithLabelValues(norm(action), status).Inc()
}
