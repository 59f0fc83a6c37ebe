// Package metrics records wizard and session activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-formwizard/pkg/session"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

const namespace = "formwizard"

// Recorder implements wizard.Observer and session.Observer.
type Recorder struct {
	registry *prometheus.Registry

	transitions        *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	validationDuration *prometheus.HistogramVec
	submissions        *prometheus.CounterVec
	activeSessions     *prometheus.GaugeVec
	closedSessions     *prometheus.CounterVec
}

var (
	_ wizard.Observer  = (*Recorder)(nil)
	_ session.Observer = (*Recorder)(nil)
)

// NewRecorder registers the collectors on a fresh registry, which also
// carries the Go runtime and process collectors.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "step_transitions_total",
				Help:      "Step changes by form and direction",
			},
			[]string{"form", "direction"},
		),
		validationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_failures_total",
				Help:      "Step validations that reported field errors",
			},
			[]string{"form", "step"},
		),
		validationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "validation_duration_seconds",
				Help:      "Time spent validating a step",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"form", "step"},
		),
		submissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_total",
				Help:      "Completed forms handed to the submitter",
			},
			[]string{"form"},
		),
		activeSessions: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Live wizard sessions",
			},
			[]string{"form"},
		),
		closedSessions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_closed_total",
				Help:      "Sessions that ended, by reason",
			},
			[]string{"form", "reason"},
		),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) StepValidated(formID, stepID string, errs wizard.FieldErrors, elapsed time.Duration) {
	r.validationDuration.WithLabelValues(formID, stepID).Observe(elapsed.Seconds())
	if len(errs) > 0 {
		r.validationFailures.WithLabelValues(formID, stepID).Inc()
	}
}

func (r *Recorder) StepChanged(formID string, from, to int) {
	direction := "forward"
	if to < from {
		direction = "backward"
	}
	r.transitions.WithLabelValues(formID, direction).Inc()
}

func (r *Recorder) Submitted(formID string) {
	r.submissions.WithLabelValues(formID).Inc()
}

func (r *Recorder) SessionOpened(formID string) {
	r.activeSessions.WithLabelValues(formID).Inc()
}

func (r *Recorder) SessionClosed(formID string, reason session.CloseReason) {
	r.activeSessions.WithLabelValues(formID).Dec()
	r.closedSessions.WithLabelValues(formID, string(reason)).Inc()
}
