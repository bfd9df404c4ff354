// Package metrics exports recording activity as Prometheus metrics.
package metrics

import (
	"errors"
	"net/http"

	"github.com/camrec/camrec"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors fed by controller events.
type Metrics struct {
	recording     prometheus.Gauge
	started       prometheus.Counter
	finished      prometheus.Counter
	saved         prometheus.Counter
	failures      *prometheus.CounterVec
	recordedSecs  prometheus.Counter
	recordedBytes prometheus.Counter
	formatChanges prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		recording: f.NewGauge(prometheus.GaugeOpts{
			Name: "camrec_recording",
			Help: "1 while a recording is in progress",
		}),
		started: f.NewCounter(prometheus.CounterOpts{
			Name: "camrec_recordings_started_total",
			Help: "Total number of recordings started",
		}),
		finished: f.NewCounter(prometheus.CounterOpts{
			Name: "camrec_recordings_finished_total",
			Help: "Total number of recordings that produced a clip",
		}),
		saved: f.NewCounter(prometheus.CounterOpts{
			Name: "camrec_clips_saved_total",
			Help: "Total number of clips saved into the media store",
		}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "camrec_failures_total",
			Help: "Total number of reported failures by kind",
		}, []string{"kind"}),
		recordedSecs: f.NewCounter(prometheus.CounterOpts{
			Name: "camrec_recorded_seconds_total",
			Help: "Total duration of finished clips",
		}),
		recordedBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "camrec_recorded_bytes_total",
			Help: "Total size of finished clips",
		}),
		formatChanges: f.NewCounter(prometheus.CounterOpts{
			Name: "camrec_format_changes_total",
			Help: "Total number of capture format changes",
		}),
	}
}

// Observe updates the collectors for e. It can be passed to
// Controller.Subscribe directly.
func (m *Metrics) Observe(e camrec.Event) {
	switch e.Type {
	case camrec.EventStateChanged:
		if e.State == camrec.Recording {
			m.recording.Set(1)
			m.started.Inc()
		} else {
			m.recording.Set(0)
		}
	case camrec.EventFormatChanged:
		m.formatChanges.Inc()
	case camrec.EventFinished:
		m.finished.Inc()
		if e.Result != nil {
			m.recordedSecs.Add(e.Result.Duration)
			m.recordedBytes.Add(float64(e.Result.Size))
		}
	case camrec.EventSaved:
		m.saved.Inc()
	case camrec.EventFailed:
		m.failures.WithLabelValues(kindLabel(e.Err)).Inc()
	}
}

// kindLabel keeps the label set to the known failure kinds.
func kindLabel(err error) string {
	switch {
	case errors.Is(err, camrec.ErrNotReady):
		return "not_ready"
	case errors.Is(err, camrec.ErrHardwareStart):
		return "hardware_start"
	case errors.Is(err, camrec.ErrHardwareStop):
		return "hardware_stop"
	case errors.Is(err, camrec.ErrPersistence):
		return "persistence"
	default:
		return "unknown"
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
