package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"xpanel/internal/domain/model"
)

func init() { register(subscriptionsExpired, subscriptionsByStatus, subscriptionDaysGranted) }

var (
	subscriptionsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Subscriptions flipped to expired by the expiry worker.",
		},
	)
	subscriptionsByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "subscriptions",
			Help: "Subscription rows by status, refreshed after each expiry round.",
		},
		[]string{"status"},
	)
	subscriptionDaysGranted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_days_granted_total",
			Help: "Subscription days granted by redemptions, per plan.",
		},
		[]string{"plan_id"},
	)
)

func IncSubscriptionsExpired(n int) {
	if n > 0 {
		subscriptionsExpired.Add(float64(n))
	}
}

// SetSubscriptionsTotal reports every known status, zero when absent from counts.
func SetSubscriptionsTotal(counts map[model.SubscriptionStatus]int) {
	for _, s := range []model.SubscriptionStatus{
		model.SubscriptionStatusInactive,
		model.SubscriptionStatusActive,
		model.SubscriptionStatusExpired,
	} {
		subscriptionsByStatus.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
}

func AddSubscriptionDaysGranted(planID int64, days int) {
	subscriptionDaysGranted.WithLabelValues(strconv.FormatInt(planID, 10)).Add(float64(days))
}
