package observer

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is an observer exporting run telemetry to Prometheus.
// All counters are registered on construction; a run's epochs increment
// EpochsTotal as steps are observed, and RunsTotal counts terminal
// events by reason.
type Metrics struct {
	RunsTotal   *prometheus.CounterVec
	EpochsTotal prometheus.Counter
	LastDelta   prometheus.Gauge
}

// NewMetrics creates and registers the metrics observer.
// Pass prometheus.DefaultRegisterer in production; tests use a fresh
// prometheus.NewRegistry to avoid cross-test collisions.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "demiurge",
			Name:      "runs_total",
			Help:      "Completed fixpoint runs by terminal reason.",
		}, []string{"reason"}),
		EpochsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "demiurge",
			Name:      "epochs_total",
			Help:      "Total epochs executed across all runs.",
		}),
		LastDelta: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "demiurge",
			Name:      "last_delta",
			Help:      "Metric delta of the most recent observed step.",
		}),
	}
	reg.MustRegister(m.RunsTotal, m.EpochsTotal, m.LastDelta)
	return m
}

func (m *Metrics) Name() string { return "metrics" }

func (m *Metrics) OnStep(ev StepEvent) {
	m.EpochsTotal.Inc()
	m.LastDelta.Set(ev.Delta)
}

func (m *Metrics) OnEpoch(EpochEvent) {}

func (m *Metrics) OnFixpoint(ev FixpointEvent) {
	m.RunsTotal.WithLabelValues(ev.Reason).Inc()
}

func (m *Metrics) OnError(ErrorEvent) {
	m.RunsTotal.WithLabelValues("error").Inc()
}
