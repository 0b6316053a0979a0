// Package metrics exposes Prometheus counters for the gaze pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector on its own registry, so tests and multiple servers
// in one process don't collide on the default one.
type Metrics struct {
	Registry *prometheus.Registry

	Ticks          prometheus.Counter
	Degraded       prometheus.Counter
	NoFace         prometheus.Counter
	Blinks         prometheus.Counter
	Calibrations   *prometheus.CounterVec
	Dropped        prometheus.Counter
	DroppedPoints  prometheus.Counter
	Sessions       prometheus.Gauge
	TickDuration   prometheus.Histogram
	Messages       *prometheus.CounterVec
	ConfigVersions prometheus.Counter
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gaze_ticks_total",
			Help: "Engine ticks processed",
		}),
		Degraded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gaze_degraded_frames_total",
			Help: "Ticks where landmarks were missing or substituted",
		}),
		NoFace: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gaze_no_face_frames_total",
			Help: "Ticks without a detected face",
		}),
		Blinks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gaze_blinks_total",
			Help: "Debounced blinks detected",
		}),
		Calibrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gaze_calibrations_total",
			Help: "Calibration windows by outcome",
		}, []string{"outcome"}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gaze_handoff_dropped_total",
			Help: "Detections overwritten before the tick loop consumed them",
		}),
		DroppedPoints: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gaze_landmark_points_dropped_total",
			Help: "Wire landmark points rejected as malformed",
		}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gaze_sessions",
			Help: "Active sessions",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gaze_tick_duration_seconds",
			Help:    "Time spent in one engine tick",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gaze_messages_total",
			Help: "Inbound protocol messages by transport and type",
		}, []string{"transport", "type"}),
		ConfigVersions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gaze_config_changes_total",
			Help: "Accepted configuration changes",
		}),
	}

	m.Registry.MustRegister(
		m.Ticks, m.Degraded, m.NoFace, m.Blinks, m.Calibrations, m.Dropped,
		m.DroppedPoints, m.Sessions, m.TickDuration, m.Messages, m.ConfigVersions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// TickResult is what the session loop reports after each tick.
type TickResult struct {
	Duration    time.Duration
	Tracking    bool
	Degraded    bool
	FaceFound   bool
	Blink       bool
	Calibration string // "" when no window closed this tick
}

// ObserveTick records one tick. A nil receiver is a no-op.
func (m *Metrics) ObserveTick(r TickResult) {
	if m == nil {
		return
	}
	m.Ticks.Inc()
	m.TickDuration.Observe(r.Duration.Seconds())
	if r.Degraded {
		m.Degraded.Inc()
	}
	if !r.FaceFound {
		m.NoFace.Inc()
	}
	if r.Blink {
		m.Blinks.Inc()
	}
	if r.Calibration != "" {
		m.Calibrations.WithLabelValues(r.Calibration).Inc()
	}
}

// ObserveMessage counts one inbound message. A nil receiver is a no-op.
func (m *Metrics) ObserveMessage(transport, msgType string) {
	if m == nil {
		return
	}
	m.Messages.WithLabelValues(transport, msgType).Inc()
}

// AddDropped counts overwritten detections. A nil receiver is a no-op.
func (m *Metrics) AddDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Dropped.Add(float64(n))
}

// AddDroppedPoints counts malformed wire points. A nil receiver is a no-op.
func (m *Metrics) AddDroppedPoints(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DroppedPoints.Add(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
