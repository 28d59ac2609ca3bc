// Package metrics exposes collection run statistics as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"CivilAIScanner/internal/domain"
	"CivilAIScanner/internal/ports"
)

const namespace = "civilai"

// Recorder implements ports.MetricsRecorder on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	candidates  *prometheus.CounterVec
	runDuration prometheus.Histogram
	runs        prometheus.Counter
	lastRun     prometheus.Gauge
	persisted   prometheus.Gauge
}

var _ ports.MetricsRecorder = (*Recorder)(nil)

// NewRecorder registers the collector set plus Go runtime metrics.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		candidates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "candidates_total",
				Help:      "Candidates processed by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collect_run_duration_seconds",
			Help:      "Duration of collect runs in seconds",
			Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200, 1800, 3600},
		}),
		runs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collect_runs_total",
			Help:      "Completed collect runs",
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "collect_last_run_timestamp_seconds",
			Help:      "Unix time of the last completed collect run",
		}),
		persisted: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "collect_last_run_persisted",
			Help:      "Articles persisted by the last collect run",
		}),
	}
}

// Record counts one candidate outcome.
func (r *Recorder) Record(source string, outcome domain.Outcome) {
	r.candidates.WithLabelValues(source, outcome.String()).Inc()
}

// RunFinished observes a completed run.
func (r *Recorder) RunFinished(stats domain.RunStats, elapsed time.Duration) {
	r.runs.Inc()
	r.runDuration.Observe(elapsed.Seconds())
	r.lastRun.SetToCurrentTime()
	r.persisted.Set(float64(stats.Persisted))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Nop discards everything; used by one-shot commands.
type Nop struct{}

var _ ports.MetricsRecorder = Nop{}

func (Nop) Record(string, domain.Outcome)              {}
func (Nop) RunFinished(domain.RunStats, time.Duration) {}
