package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		keysIssuedTotal,
		redemptionsTotal,
		redemptionRetriesTotal,
		gateChecksTotal,
	)
}

var (
	keysIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activation_keys_issued_total",
			Help: "Activation keys issued, by feature.",
		},
		[]string{"feature"},
	)

	redemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activation_redemptions_total",
			Help: "Redemption attempts by outcome.",
		},
		[]string{"result"}, // 'success', 'invalid_key', 'already_used', 'expired', ...
	)

	redemptionRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "activation_redemption_retries_total",
			Help: "Redemption transactions retried after a write conflict.",
		},
	)

	gateChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feature_gate_checks_total",
			Help: "Gate checks by answer ('active', 'inactive', 'unknown', 'disabled', 'error').",
		},
		[]string{"result"},
	)
)

func IncKeyIssued(feature string) {
	keysIssuedTotal.WithLabelValues(norm(feature)).Inc()
}

func IncRedemption(result string) {
	redemptionsTotal.WithLabelValues(norm(result)).Inc()
}

func IncRedemptionRetry() {
	redemptionRetriesTotal.Inc()
}

func IncGateCheck(result string) {
	gateChecksTotal.WithLabelValues(norm(result)).Inc()
}
