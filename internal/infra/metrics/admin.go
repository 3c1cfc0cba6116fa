package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(adminRequestTotal) }

var adminRequestTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "admin_request_total",
		Help: "Tracks attempts to reach admin endpoints.",
	},
	[]string{"route", "status"}, // status: 'authorized', 'unauthorized', 'forbidden'
)

func IncAdminRequest(route, status string) {
	adminRequestTotal.WithLabelValues(route, norm(status)).Inc()
}
