package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcome label values.
const (
	outcomeOK             = "ok"
	outcomeHTTPError      = "http_error"
	outcomeTransportError = "transport_error"
	outcomeRequestError   = "request_error"
	outcomeDecodeError    = "decode_error"
)

// Metrics counts gateway requests per operation and outcome.
type Metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics registers the gateway collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "journal",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Journal API requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "journal",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Journal API request latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}
