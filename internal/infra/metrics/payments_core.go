package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		PaymentIntentsCreated,
		PaymentIntentsExpired,
		PurchasesCreated,
		PurchaseConflictsRecovered,
	)
}

var (
	// Intents created, grouped by chain.
	PaymentIntentsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_intents_created_total",
			Help: "Payment intents created, by chain.",
		},
		[]string{"chain"},
	)

	// Intents moved pending -> expired (by the verify path or the worker).
	PaymentIntentsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_intents_expired_total",
			Help: "Payment intents transitioned to expired.",
		},
	)

	// Purchases materialized, grouped by chain.
	PurchasesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchases_created_total",
			Help: "Purchases materialized from confirmed intents, by chain.",
		},
		[]string{"chain"},
	)

	// Idempotency races lost and recovered by returning the winner's row.
	PurchaseConflictsRecovered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "purchase_conflicts_recovered_total",
			Help: "Duplicate-signature insert conflicts recovered internally.",
		},
	)
)
