// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "qmusic"

// Simulation outcomes recorded on SimulationsTotal.
const (
	OutcomeSuccess      = "success"
	OutcomeInvalidInput = "invalid_input"
	OutcomeSolverFailed = "solver_failed"
	OutcomeCanceled     = "canceled"
	OutcomeError        = "error"
)

// Collector holds all Prometheus metrics for the application on a private registry.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	SimulationsTotal   *prometheus.CounterVec
	SimulationDuration prometheus.Histogram
	AudioBytes         prometheus.Counter
}

// NewCollector creates a collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		SimulationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "simulations_total",
				Help:      "Simulations produced, by outcome",
			},
			[]string{"outcome"},
		),
		SimulationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "simulation_duration_seconds",
				Help:      "Wall time of a full produce run",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
		),
		AudioBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "audio_bytes_total",
				Help:      "Bytes of WAV audio encoded",
			},
		),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.SimulationsTotal,
		c.SimulationDuration,
		c.AudioBytes,
	)

	return c
}

// Registry returns the private registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveSimulation records one produce run.
func (c *Collector) ObserveSimulation(outcome string, elapsed time.Duration, audioBytes int) {
	c.SimulationsTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		c.SimulationDuration.Observe(elapsed.Seconds())
		c.AudioBytes.Add(float64(audioBytes))
	}
}

// Middleware counts requests by method and status.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
		c.HTTPDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}
