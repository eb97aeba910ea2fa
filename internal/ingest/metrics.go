package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the ingestion counters exposed on /metrics.
type Metrics struct {
	SourcesProcessed  prometheus.Counter
	RecordsNormalized prometheus.Counter
	ParseFailures     prometheus.Counter
	WorkerOffloads    prometheus.Counter
}

// NewMetrics registers the ingestion counters with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SourcesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "fleetsift_ingest_sources_total",
			Help: "Number of input sources successfully processed.",
		}),
		RecordsNormalized: factory.NewCounter(prometheus.CounterOpts{
			Name: "fleetsift_ingest_records_total",
			Help: "Number of canonical device records produced.",
		}),
		ParseFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "fleetsift_ingest_failures_total",
			Help: "Number of batches aborted by a malformed source.",
		}),
		WorkerOffloads: factory.NewCounter(prometheus.CounterOpts{
			Name: "fleetsift_ingest_worker_offloads_total",
			Help: "Number of batches delegated to the isolated worker.",
		}),
	}
}
