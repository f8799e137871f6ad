package monitoring

import (
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rotisserie/eris"
)

const namespace = "lead_harvest"

// PhaseMetrics holds the counters of one phase run. Each run gets its own
// registry and is written out as a node_exporter textfile.
type PhaseMetrics struct {
	phase    string
	registry *prometheus.Registry

	records  *prometheus.CounterVec
	duration prometheus.Gauge
	finished prometheus.Gauge
	success  prometheus.Gauge
}

// NewPhaseMetrics creates the metrics for phase.
func NewPhaseMetrics(phase string) *PhaseMetrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &PhaseMetrics{
		phase:    phase,
		registry: reg,
		records: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: phase,
			Name:      "records_total",
			Help:      "Records handled in the last run, by outcome.",
		}, []string{"outcome"}),
		duration: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: phase,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		finished: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: phase,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		success: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: phase,
			Name:      "last_run_success",
			Help:      "1 if the last run succeeded, 0 otherwise.",
		}),
	}
}

// Add counts n records with the given outcome.
func (m *PhaseMetrics) Add(outcome string, n int) {
	if n > 0 {
		m.records.WithLabelValues(outcome).Add(float64(n))
	}
}

// Finish records the run's duration, end time and success.
func (m *PhaseMetrics) Finish(start time.Time, ok bool) {
	now := time.Now()
	m.duration.Set(now.Sub(start).Seconds())
	m.finished.Set(float64(now.Unix()))
	if ok {
		m.success.Set(1)
	} else {
		m.success.Set(0)
	}
}

// Registry exposes the underlying registry.
func (m *PhaseMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes lead_harvest_<phase>.prom into dir atomically.
func (m *PhaseMetrics) WriteTextfile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "monitoring: create %s", dir)
	}
	path := filepath.Join(dir, namespace+"_"+m.phase+".prom")
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return "", eris.Wrapf(err, "monitoring: write %s", path)
	}
	return path, nil
}
