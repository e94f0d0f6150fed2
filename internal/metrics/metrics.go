// Package metrics exposes safetywatch counters to Prometheus. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline counters on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	indicators      *prometheus.CounterVec
	events          *prometheus.CounterVec
	alerts          *prometheus.CounterVec
	channelFailures *prometheus.CounterVec
	confirmations   *prometheus.CounterVec
}

// New creates and registers the counters.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		indicators: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "safetywatch_indicators_total",
			Help: "Distress indicators recorded, by kind and severity.",
		}, []string{"kind", "severity"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "safetywatch_events_total",
			Help: "Safety event status changes, by resulting status.",
		}, []string{"status"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "safetywatch_alerts_total",
			Help: "Emergency alerts dispatched, by type.",
		}, []string{"type"}),
		channelFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "safetywatch_dispatch_channel_failures_total",
			Help: "Alert dispatch channels that reported a failure.",
		}, []string{"channel"}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "safetywatch_confirmations_total",
			Help: "Resolved confirmation prompts, by user response.",
		}, []string{"response"}),
	}
	m.registry.MustRegister(m.indicators, m.events, m.alerts, m.channelFailures, m.confirmations)
	return m
}

func (m *Metrics) Indicator(kind, severity string) {
	if m != nil {
		m.indicators.WithLabelValues(kind, severity).Inc()
	}
}

func (m *Metrics) Event(status string) {
	if m != nil {
		m.events.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) Alert(alertType string) {
	if m != nil {
		m.alerts.WithLabelValues(alertType).Inc()
	}
}

func (m *Metrics) ChannelFailure(channel string) {
	if m != nil {
		m.channelFailures.WithLabelValues(channel).Inc()
	}
}

func (m *Metrics) Confirmation(response string) {
	if m != nil {
		m.confirmations.WithLabelValues(response).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics listener started", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
