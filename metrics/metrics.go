// Package metrics provides Prometheus metrics for the registry service.
// HTTP metrics track request performance; ingestion metrics track the batch
// pipeline (rows applied, quarantined rows, checker violations, batch
// duration). All metrics register with the default registry at init.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	IngestRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_rows_total",
			Help: "Rows applied by the merge engine, by operation outcome",
		},
		[]string{"op"},
	)

	IngestQuarantinedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_quarantined_rows_total",
			Help: "Rows quarantined during ingestion",
		},
	)

	CheckViolations = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "check_violations",
			Help: "Consistency violations found by the last batch, by kind",
		},
		[]string{"kind"},
	)

	IngestBatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_batch_duration_seconds",
			Help:    "Wall time of one ingestion batch",
			Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300},
		},
	)

	CommittedProducts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "committed_products",
			Help: "Products in the committed dataset",
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(IngestRowsTotal)
	prometheus.MustRegister(IngestQuarantinedTotal)
	prometheus.MustRegister(CheckViolations)
	prometheus.MustRegister(IngestBatchDuration)
	prometheus.MustRegister(CommittedProducts)
}
