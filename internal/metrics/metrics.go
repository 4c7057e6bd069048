// Package metrics exposes Prometheus collectors for estimation runs.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ieee0824/fujisakiest-go/estimation"
	"github.com/ieee0824/fujisakiest-go/fujisaki"
)

// Metrics groups the collectors of one runner.
type Metrics struct {
	Runs     *prometheus.CounterVec
	Commands *prometheus.CounterVec
	Duration prometheus.Histogram
	RMSE     prometheus.Histogram
	Active   prometheus.Gauge
}

// New registers the collectors on reg. A nil reg creates unregistered collectors.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fujisakiest_runs_total",
				Help: "Number of estimation runs by status code",
			},
			[]string{"status"},
		),
		Commands: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fujisakiest_commands_total",
				Help: "Number of decoded commands by type",
			},
			[]string{"type"},
		),
		Duration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fujisakiest_run_duration_seconds",
				Help:    "Wall time of one estimation run in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),
		RMSE: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fujisakiest_rmse",
				Help:    "Voiced-frame RMSE of the regenerated log F0",
				Buckets: []float64{0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1},
			},
		),
		Active: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "fujisakiest_active_runs",
				Help: "Number of estimations in progress",
			},
		),
	}
}

// Start marks a run as in progress and returns the function that records
// its outcome.
func (m *Metrics) Start() func(res estimation.Result, err error) {
	m.Active.Inc()
	begin := time.Now()
	return func(res estimation.Result, err error) {
		m.Active.Dec()
		m.Duration.Observe(time.Since(begin).Seconds())
		m.Runs.WithLabelValues(statusLabel(err)).Inc()
		if err != nil {
			return
		}
		if res.RMSE != fujisaki.NoVoicedRMSE {
			m.RMSE.Observe(res.RMSE)
		}
		for _, c := range res.Commands {
			m.Commands.WithLabelValues(c.Type.String()).Inc()
		}
	}
}

func statusLabel(err error) string {
	st, ok := estimation.StatusOf(err)
	if !ok {
		return "error"
	}
	return strconv.Itoa(int(st))
}

// WriteTextfile writes the metrics gathered from g in the text exposition
// format, for the node exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
