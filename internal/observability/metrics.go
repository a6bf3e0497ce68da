// Package observability carries the logger, the per-stage hook and the
// Prometheus metrics fed by that hook.
package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a Hook that turns stage records into Prometheus series.
type Metrics struct {
	registry *prometheus.Registry

	StageTotal     *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
	OutcomesTotal  *prometheus.CounterVec
	DeployAttempts prometheus.Counter
	WebhooksTotal  *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "zoiner"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		StageTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_total",
			Help:      "Pipeline stage records by stage and status",
		}, []string{"stage", "status"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of timed pipeline stages",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		OutcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_outcomes_total",
			Help:      "Terminal pipeline outcomes",
		}, []string{"outcome"}),
		DeployAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deploy_attempts_total",
			Help:      "Chain write attempts, including retries",
		}),
		WebhooksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_total",
			Help:      "Webhook deliveries by event type",
		}, []string{"type"}),
	}

	m.registry.MustRegister(
		m.StageTotal,
		m.StageDuration,
		m.OutcomesTotal,
		m.DeployAttempts,
		m.WebhooksTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) Record(_ context.Context, r Record) {
	if r.Stage == StageOutcome {
		m.OutcomesTotal.WithLabelValues(r.Detail).Inc()
		return
	}

	m.StageTotal.WithLabelValues(string(r.Stage), string(r.Status)).Inc()
	if r.Duration > 0 {
		m.StageDuration.WithLabelValues(string(r.Stage)).Observe(r.Duration.Seconds())
	}
	if r.Stage == StageDeploy && r.Attempt > 0 && r.Status != StatusSkipped {
		m.DeployAttempts.Inc()
	}
}

func (m *Metrics) WebhookReceived(eventType string) {
	m.WebhooksTotal.WithLabelValues(eventType).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
