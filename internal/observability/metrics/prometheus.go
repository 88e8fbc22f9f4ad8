// Package metrics provides Prometheus metrics for document building and submission.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes
const (
	OutcomeAccepted     = "accepted"
	OutcomeRejected     = "rejected"
	OutcomeDeadLettered = "dead_lettered"
	OutcomeDuplicate    = "duplicate"
	OutcomeStale        = "stale"
)

// Metrics holds all application metrics
type Metrics struct {
	DocumentsBuilt     prometheus.Counter
	BuildFailures      *prometheus.CounterVec
	BuildDuration      prometheus.Histogram
	Submissions        *prometheus.CounterVec
	SubmissionDuration prometheus.Histogram
	MessagesConsumed   prometheus.Counter
	OutboxPending      prometheus.Gauge
}

// New creates the metrics and registers them with reg. A nil reg uses the
// default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		DocumentsBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vrdr_documents_built_total",
			Help: "Total death certificate documents assembled",
		}),
		BuildFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vrdr_document_build_failures_total",
			Help: "Document builds rejected, by reason",
		}, []string{"reason"}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vrdr_document_build_duration_seconds",
			Help:    "Time to map and assemble one document",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vrdr_submissions_total",
			Help: "Submission attempts by jurisdiction and outcome",
		}, []string{"jurisdiction", "outcome"}),
		SubmissionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vrdr_submission_duration_seconds",
			Help:    "Time from dequeue to recorded outcome",
			Buckets: prometheus.DefBuckets,
		}),
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vrdr_kafka_messages_consumed_total",
			Help: "Total submission requests consumed",
		}),
		OutboxPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vrdr_outbox_pending_entries",
			Help: "Outbox entries not yet published",
		}),
	}

	reg.MustRegister(
		m.DocumentsBuilt,
		m.BuildFailures,
		m.BuildDuration,
		m.Submissions,
		m.SubmissionDuration,
		m.MessagesConsumed,
		m.OutboxPending,
	)

	return m
}

// ObserveBuild records one build attempt. An empty reason counts a success.
func (m *Metrics) ObserveBuild(start time.Time, reason string) {
	if m == nil {
		return
	}
	m.BuildDuration.Observe(time.Since(start).Seconds())
	if reason == "" {
		m.DocumentsBuilt.Inc()
		return
	}
	m.BuildFailures.WithLabelValues(reason).Inc()
}

// ObserveSubmission records the outcome of one submission request.
func (m *Metrics) ObserveSubmission(start time.Time, jurisdiction, outcome string) {
	if m == nil {
		return
	}
	m.SubmissionDuration.Observe(time.Since(start).Seconds())
	m.Submissions.WithLabelValues(jurisdiction, outcome).Inc()
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor serves the metrics of one registry.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
