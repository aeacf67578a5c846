package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfp_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rfp_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.005, .01, .05, .1, .5, 1, 5, 15, 30, 60},
		},
		[]string{"method", "path"},
	)

	// Workflow metrics
	RFPsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rfp_rfps_created_total",
			Help: "Total RFPs created from text",
		},
	)

	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfp_emails_sent_total",
			Help: "Total RFP emails sent to vendors",
		},
		[]string{"result"}, // "ok" or "error"
	)

	PollRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfp_poll_runs_total",
			Help: "Total inbox poll runs",
		},
		[]string{"outcome"}, // "ok", "empty", "busy" or "error"
	)

	PollMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfp_poll_messages_total",
			Help: "Total unread messages visited by inbox polls",
		},
		[]string{"result"},
	)

	// Generator metrics
	GeneratorCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfp_generator_calls_total",
			Help: "Total generative-text calls",
		},
		[]string{"kind", "result"},
	)

	GeneratorLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rfp_generator_latency_seconds",
			Help:    "Generative-text call latency",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)
)
