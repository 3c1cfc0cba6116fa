package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(planCacheRequests, rateLimitDecisions) }

var (
	planCacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plan_cache_requests_total",
			Help: "Plan cache lookups by key kind and result.",
		},
		[]string{"kind", "result"}, // kind: plan|plan_list, result: hit|miss
	)
	rateLimitDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_decisions_total",
			Help: "Rate limiter decisions per action.",
		},
		[]string{"action", "result"}, // allowed, limited, error
	)
)

func IncPlanCache(kind, result string) {
	planCacheRequests.WithLabelValues(norm(kind), norm(result)).Inc()
}

func IncRateLimit(action, result string) {
	rateLimitDecisions.WithLabelValues(norm(action), norm(result)).Inc()
}
