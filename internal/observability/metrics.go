// Package observability provides the structured logger and Prometheus
// metrics for the reconstruction pipeline.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion
	RecordsFetched   prometheus.Counter
	PagesFetched     prometheus.Counter
	PartialFetches   prometheus.Counter
	RateLimitRetries prometheus.Counter
	RPCCallLatency   *prometheus.HistogramVec

	// Decoding
	EventsDecoded   prometheus.Counter
	PayloadsDropped prometheus.Counter
	UnknownEnums    prometheus.Counter

	// Lifecycle reconstruction
	TradesReconstructed  *prometheus.CounterVec
	DataConsistencyError prometheus.Counter
	RunDuration          prometheus.Histogram
}

// NewMetrics creates a Metrics instance with all metrics registered on
// the default registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "perp_history"
	}

	return &Metrics{
		RecordsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "records_fetched_total",
			Help:      "Total number of in-window records fetched",
		}),
		PagesFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "pages_fetched_total",
			Help:      "Total number of signature pages fetched",
		}),
		PartialFetches: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "partial_fetches_total",
			Help:      "Identifier fetches that abandoned a page or record after retry exhaustion",
		}),
		RateLimitRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "rate_limit_retries_total",
			Help:      "Total number of rate-limited request retries",
		}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "rpc_call_duration_seconds",
			Help:      "RPC call latency by method",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		EventsDecoded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decode",
			Name:      "events_decoded_total",
			Help:      "Total number of typed events decoded",
		}),
		PayloadsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decode",
			Name:      "payloads_dropped_total",
			Help:      "Payloads dropped for unknown discriminators or short layouts",
		}),
		UnknownEnums: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decode",
			Name:      "unknown_enum_values_total",
			Help:      "Enum values outside the configured lookup tables",
		}),

		TradesReconstructed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "trades_reconstructed_total",
			Help:      "Trades reconstructed by terminal status",
		}, []string{"status"}),
		DataConsistencyError: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "data_consistency_errors_total",
			Help:      "Events discarded because no active trade matched them",
		}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "run_duration_seconds",
			Help:      "Wall time of one reconstruction run",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
