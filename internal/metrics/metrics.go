// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prospect",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "prospect",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	siteAnalyses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prospect",
			Name:      "site_analyses_total",
			Help:      "Site analyses by resulting classification",
		},
		[]string{"classification"},
	)

	interestDetections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prospect",
			Name:      "interest_detections_total",
			Help:      "Inbound replies by detected outcome",
		},
		[]string{"outcome"},
	)

	emailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prospect",
			Name:      "emails_total",
			Help:      "Outbound emails by message type and result",
		},
		[]string{"message_type", "result"},
	)

	personalizations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prospect",
			Name:      "ai_personalizations_total",
			Help:      "AI personalization attempts by result",
		},
		[]string{"result"},
	)

	leadsImported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prospect",
			Name:      "leads_imported_total",
			Help:      "Leads inserted by source",
		},
		[]string{"source"},
	)

	leadDuplicates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prospect",
			Name:      "lead_duplicates_total",
			Help:      "Leads skipped as duplicates by source",
		},
		[]string{"source"},
	)

	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prospect",
			Name:      "events_published_total",
			Help:      "Events published by kind",
		},
		[]string{"kind"},
	)

	eventsHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prospect",
			Name:      "events_handled_total",
			Help:      "Events consumed by kind and disposition",
		},
		[]string{"kind", "disposition"},
	)

	pipelineOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prospect",
			Name:      "pipeline_lead_outcomes_total",
			Help:      "Per-lead outcomes of outreach runs",
		},
		[]string{"outcome"},
	)

	circuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "prospect",
			Name:      "circuit_state",
			Help:      "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
		[]string{"name"},
	)
)

func RecordSiteAnalysis(classification string) {
	siteAnalyses.WithLabelValues(classification).Inc()
}

func RecordInterest(outcome string) {
	interestDetections.WithLabelValues(outcome).Inc()
}

func RecordEmail(messageType, result string) {
	emailsSent.WithLabelValues(messageType, result).Inc()
}

func RecordPersonalization(result string) {
	personalizations.WithLabelValues(result).Inc()
}

// RecordImport counts inserted and duplicate leads for one import batch.
func RecordImport(source string, imported, duplicates int) {
	leadsImported.WithLabelValues(source).Add(float64(imported))
	leadDuplicates.WithLabelValues(source).Add(float64(duplicates))
}

func RecordEventPublished(kind string) {
	eventsPublished.WithLabelValues(kind).Inc()
}

func RecordEventHandled(kind, disposition string) {
	eventsHandled.WithLabelValues(kind, disposition).Inc()
}

func RecordPipelineOutcome(outcome string) {
	pipelineOutcomes.WithLabelValues(outcome).Inc()
}

// SetCircuitState exports a breaker state. It matches the signature of
// resilience.CircuitBreakerConfig.OnStateChange after the state conversion.
func SetCircuitState(name string, state int) {
	circuitState.WithLabelValues(name).Set(float64(state))
}
