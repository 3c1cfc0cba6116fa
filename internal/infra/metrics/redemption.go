package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		redemptionAttemptsTotal,
		redemptionCodesGeneratedTotal,
		commissionsCreatedTotal,
		commissionsSettledTotal,
	)
}

var (
	redemptionAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redemption_attempts_total",
			Help: "Redemption attempts by outcome.",
		},
		[]string{"result"}, // activated, extended, already_redeemed, not_found, expired, conflict, invalid, rejected, error
	)

	redemptionCodesGeneratedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "redemption_codes_generated_total",
			Help: "Total number of redemption codes committed by generation batches.",
		},
	)

	commissionsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "commissions_created_total",
			Help: "Referral commissions booked by redemptions.",
		},
	)

	commissionsSettledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "commissions_settled_total",
			Help: "Referral commissions moved from pending to settled.",
		},
	)
)

func IncRedemptionAttempt(result string) {
	redemptionAttemptsTotal.WithLabelValues(norm(result)).Inc()
}

func AddCodesGenerated(n int) {
	redemptionCodesGeneratedTotal.Add(float64(n))
}

func IncCommissionCreated() { commissionsCreatedTotal.Inc() }

func IncCommissionSettled() { commissionsSettledTotal.Inc() }
