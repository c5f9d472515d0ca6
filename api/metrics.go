/*
metrics.go - Prometheus instrumentation for engine decisions

Counters only; the engine's operations are short synchronous calls and
latency is dominated by SQLite, so histograms add little here.

METRICS:
  approval_decisions_total{type, recommendation}  Evaluator verdicts
  approval_escalations_total{fallback}            Router calls
  approval_resolutions_total{decision}            Manager decisions
*/
package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks decision engine activity.
type Metrics struct {
	decisionsTotal   *prometheus.CounterVec
	escalationsTotal *prometheus.CounterVec
	resolutionsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the engine metrics with the registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "approval",
				Name:      "decisions_total",
				Help:      "Total evaluator decisions by request type and recommendation",
			},
			[]string{"type", "recommendation"},
		),
		escalationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "approval",
				Name:      "escalations_total",
				Help:      "Total escalation router calls",
			},
			[]string{"fallback"},
		),
		resolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "approval",
				Name:      "resolutions_total",
				Help:      "Total manager resolutions by decision",
			},
			[]string{"decision"},
		),
	}

	registry.MustRegister(m.decisionsTotal, m.escalationsTotal, m.resolutionsTotal)
	return m
}

func (m *Metrics) RecordDecision(requestType, recommendation string) {
	m.decisionsTotal.WithLabelValues(requestType, recommendation).Inc()
}

func (m *Metrics) RecordEscalation(usedFallback bool) {
	label := "false"
	if usedFallback {
		label = "true"
	}
	m.escalationsTotal.WithLabelValues(label).Inc()
}

func (m *Metrics) RecordResolution(decision string) {
	m.resolutionsTotal.WithLabelValues(decision).Inc()
}
