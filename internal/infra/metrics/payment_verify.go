package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		PaymentVerifyRequests,
		PaymentVerifyDuration,
		ChainRPCDuration,
	)
}

var (
	// Count of verify calls grouped by result and bounded reason.
	// result: ok|fail
	// reason (fail only): not_found|not_pending|expired|unsupported_chain|invalid_tx|conflict|internal
	PaymentVerifyRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_verify_requests_total",
			Help: "Count of verify-payment calls by result and reason.",
		},
		[]string{"result", "reason"},
	)

	// Latency of the full verify flow grouped by result.
	PaymentVerifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_verify_duration_seconds",
			Help:    "Duration of the verify-payment flow in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"result"},
	)

	// Outbound chain RPC latency, by chain.
	ChainRPCDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chain_rpc_duration_seconds",
			Help:    "Duration of chain RPC transaction lookups in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"chain"},
	)
)
