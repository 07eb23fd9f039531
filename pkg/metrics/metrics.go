package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Gateway
	RPCCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hashpay",
		Subsystem: "gateway",
		Name:      "rpc_calls_total",
		Help:      "Total JSON-RPC calls by method and outcome",
	}, []string{"method", "outcome"})

	RPCLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hashpay",
		Subsystem: "gateway",
		Name:      "rpc_duration_seconds",
		Help:      "JSON-RPC call duration",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"method"})

	ConnectHandshakes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hashpay",
		Subsystem: "gateway",
		Name:      "connect_handshakes_total",
		Help:      "Wallet approval handshakes actually sent to the provider",
	})

	// Submission flow
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hashpay",
		Subsystem: "transfer",
		Name:      "submissions_total",
		Help:      "Send submissions by final stage",
	}, []string{"stage"})

	// Invoices
	InvoiceTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hashpay",
		Subsystem: "invoice",
		Name:      "transitions_total",
		Help:      "Persisted invoice status transitions",
	}, []string{"status"})

	// Pricing
	PriceQuotes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hashpay",
		Subsystem: "pricing",
		Name:      "quotes_total",
		Help:      "Fiat quotes by source (cache, api, error)",
	}, []string{"source"})

	// HTTP
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hashpay",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status",
	}, []string{"route", "status"})

	LiveSubscribers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "hashpay",
		Subsystem: "http",
		Name:      "stream_subscribers",
		Help:      "Open server-sent event streams",
	}, []string{"stream"})
)
