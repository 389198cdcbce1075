package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	documentWriteGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "routine_service",
		Subsystem: "store",
		Name:      "last_document_write_timestamp_seconds",
		Help:      "Unix timestamp of the most recent document written, labeled by collection.",
	}, []string{"collection"})

	resolvedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "routine_service",
		Subsystem: "resolution",
		Name:      "exercises_resolved_total",
		Help:      "Number of routine links merged with their catalog entry.",
	})

	danglingCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "routine_service",
		Subsystem: "resolution",
		Name:      "dangling_links_skipped_total",
		Help:      "Number of routine links omitted because their catalog entry no longer exists.",
	})

	cascadeFailureCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "routine_service",
		Subsystem: "store",
		Name:      "cascade_link_delete_failures_total",
		Help:      "Number of link deletes that failed while cascading a routine delete.",
	})

	migrationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "routine_service",
		Subsystem: "migration",
		Name:      "documents_total",
		Help:      "Documents handled by the legacy layout migration, labeled by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(documentWriteGauge, resolvedCounter, danglingCounter, cascadeFailureCounter, migrationCounter)
}

// RecordDocumentWrite updates the write watermark for a collection.
func RecordDocumentWrite(collection string, ts time.Time) {
	if ts.IsZero() {
		return
	}
	documentWriteGauge.WithLabelValues(collection).Set(float64(ts.Unix()))
}

// RecordResolution counts resolved and skipped links for one resolution pass.
func RecordResolution(resolved, skipped int) {
	resolvedCounter.Add(float64(resolved))
	danglingCounter.Add(float64(skipped))
}

// RecordCascadeFailures counts failed link deletes.
func RecordCascadeFailures(n int) {
	if n > 0 {
		cascadeFailureCounter.Add(float64(n))
	}
}

// RecordMigration counts a migration outcome such as "catalog_created" or "link_written".
func RecordMigration(outcome string) {
	migrationCounter.WithLabelValues(outcome).Inc()
}
