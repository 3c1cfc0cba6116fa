package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(withdrawalsTotal, withdrawnAmountTotal) }

var (
	withdrawalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commission_withdrawals_total",
			Help: "Commission withdrawal requests by lifecycle step.",
		},
		[]string{"result"}, // requested, approved, rejected
	)

	withdrawnAmountTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "commission_withdrawn_amount_total",
			Help: "Commission balance paid out by approved withdrawals, in minor currency units.",
		},
	)
)

func IncWithdrawal(result string) {
	withdrawalsTotal.WithLabelValues(norm(result)).Inc()
}

func AddWithdrawnAmount(amount int64) {
	withdrawnAmountTotal.Add(float64(amount))
}
