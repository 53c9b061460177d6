package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_total",
			Help: "Orders routed, by rail and final status",
		},
		[]string{"rail", "status"},
	)

	PollAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chain_poll_attempts_total",
			Help: "Receipt lookups performed by the confirmation poller",
		},
	)

	PollUnresolved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chain_poll_unresolved_total",
			Help: "Confirmation polls that exhausted their retry budget",
		},
	)

	TokensIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "redemption_tokens_issued_total",
			Help: "Download credentials issued",
		},
	)

	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
)

var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(OrdersTotal)
	prometheus.MustRegister(PollAttempts)
	prometheus.MustRegister(PollUnresolved)
	prometheus.MustRegister(TokensIssued)
	prometheus.MustRegister(WorkerQueueDepth)
}
