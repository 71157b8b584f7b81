// Package metrics exposes the Prometheus counters and histograms the
// ingestion pipeline's DB and blob paths report into, replacing the
// module-level latency accumulators the source kept as globals.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sink is injected into Repository and blobstore.S3Sink so neither of
// them depends on a global registry.
type Sink struct {
	dbUpsertDuration   *prometheus.HistogramVec
	blobUploadDuration *prometheus.HistogramVec
	blobUploadTotal    *prometheus.CounterVec
	heightsPersisted   prometheus.Counter
}

// New registers the ingester's metrics on reg and returns a Sink. Pass
// prometheus.NewRegistry() for tests, or prometheus.DefaultRegisterer in
// production.
func New(reg prometheus.Registerer) *Sink {
	s := &Sink{
		dbUpsertDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ingester",
			Subsystem: "db",
			Name:      "upsert_duration_seconds",
			Help:      "Duration of Repository.InsertRaw transactions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"chain_id"}),
		blobUploadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ingester",
			Subsystem: "blob",
			Name:      "upload_duration_seconds",
			Help:      "Duration of BlobSink.PutJSON calls, including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		blobUploadTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingester",
			Subsystem: "blob",
			Name:      "upload_total",
			Help:      "Total blob uploads by outcome.",
		}, []string{"kind", "outcome"}),
		heightsPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ingester",
			Name:      "heights_persisted_total",
			Help:      "Total heights successfully upserted into the raw table.",
		}),
	}
	reg.MustRegister(s.dbUpsertDuration, s.blobUploadDuration, s.blobUploadTotal, s.heightsPersisted)
	return s
}

// ObserveDBUpsert records the duration of one InsertRaw transaction.
func (s *Sink) ObserveDBUpsert(chainID string, d time.Duration) {
	s.dbUpsertDuration.WithLabelValues(chainID).Observe(d.Seconds())
}

// ObserveBlobUpload records one PutJSON call. key is used only to derive
// the "blocks" vs "txs" kind label, keeping cardinality bounded.
func (s *Sink) ObserveBlobUpload(key string, d time.Duration, success bool) {
	kind := "other"
	switch {
	case strings.Contains(key, "/blocks/"):
		kind = "blocks"
	case strings.Contains(key, "/txs/"):
		kind = "txs"
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	s.blobUploadDuration.WithLabelValues(kind).Observe(d.Seconds())
	s.blobUploadTotal.WithLabelValues(kind, outcome).Inc()
}

// IncHeightsPersisted increments the persisted-height counter by one.
func (s *Sink) IncHeightsPersisted() {
	s.heightsPersisted.Inc()
}
