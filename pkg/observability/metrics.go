package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/livemd/pkg/domain"
)

// Metrics holds the runtime collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Blocks       *prometheus.CounterVec
	PassDuration *prometheus.HistogramVec
	Timeouts     prometheus.Counter
	StateBytes   prometheus.Histogram
	Passes       *prometheus.CounterVec
}

// NewMetrics creates and registers the livemd collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Blocks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livemd_blocks_total",
				Help: "Runtime blocks executed, by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		PassDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "livemd_pass_duration_seconds",
				Help:    "Wall-clock duration of execution passes.",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"status"},
		),
		Timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "livemd_timeouts_total",
			Help: "Execution passes cut short by the guard deadline.",
		}),
		StateBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "livemd_state_bytes",
			Help:    "Session state size at the end of a pass.",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		}),
		Passes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livemd_passes_total",
				Help: "Execution passes, by terminal status.",
			},
			[]string{"status"},
		),
	}
	m.registry.MustRegister(m.Blocks, m.PassDuration, m.Timeouts, m.StateBytes, m.Passes)
	return m
}

// Registry exposes the registry, e.g. to add process collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnBlockEnd: func(_ context.Context, e *domain.BlockEvent) {
			m.Blocks.WithLabelValues(string(e.Kind), e.Outcome).Inc()
		},
		OnPassEnd: func(_ context.Context, e *domain.PassEvent) {
			status := string(e.Status)
			m.Passes.WithLabelValues(status).Inc()
			m.PassDuration.WithLabelValues(status).Observe(e.Duration.Seconds())
			m.StateBytes.Observe(float64(e.StateSize))
			if e.Status == domain.PassTimedOut {
				m.Timeouts.Inc()
			}
		},
	}
}
