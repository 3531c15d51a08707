// Package metrics exposes Prometheus instrumentation for the capture and
// detection pipeline. All methods are safe to call on a nil *Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voice_actor"

// Metrics contains all Prometheus metrics for the voice pipeline
type Metrics struct {
	// Capture metrics
	SnapshotsEmitted prometheus.Counter
	SegmentsEmitted  prometheus.Counter

	// Detection metrics
	WakewordChecks     prometheus.Counter
	WakewordDetections prometheus.Counter
	Collections        *prometheus.CounterVec

	// Dispatch metrics
	CommandsDispatched prometheus.Counter
	CommandErrors      prometheus.Counter

	// Transcription metrics
	TranscriptionDuration *prometheus.HistogramVec
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SnapshotsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_emitted_total",
			Help:      "Total number of rolling snapshots emitted by capture",
		}),
		SegmentsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_emitted_total",
			Help:      "Total number of long segments emitted by capture, pre-roll included",
		}),
		WakewordChecks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wakeword_checks_total",
			Help:      "Total number of snapshots checked for the wakeword",
		}),
		WakewordDetections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wakeword_detections_total",
			Help:      "Total number of wakeword detections",
		}),
		Collections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collections_total",
			Help:      "Total number of command collections by outcome",
		}, []string{"outcome"}),
		CommandsDispatched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_dispatched_total",
			Help:      "Total number of commands handed to the command handler",
		}),
		CommandErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_errors_total",
			Help:      "Total number of command handler failures",
		}),
		TranscriptionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcription_seconds",
			Help:      "Time spent transcribing a buffer, by engine tier",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"tier"}),
	}
}

func (m *Metrics) SnapshotEmitted() {
	if m == nil {
		return
	}
	m.SnapshotsEmitted.Inc()
}

func (m *Metrics) SegmentEmitted() {
	if m == nil {
		return
	}
	m.SegmentsEmitted.Inc()
}

func (m *Metrics) WakewordChecked(detected bool) {
	if m == nil {
		return
	}
	m.WakewordChecks.Inc()
	if detected {
		m.WakewordDetections.Inc()
	}
}

func (m *Metrics) CollectionFinished(outcome string) {
	if m == nil {
		return
	}
	m.Collections.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CommandDispatched(err error) {
	if m == nil {
		return
	}
	m.CommandsDispatched.Inc()
	if err != nil {
		m.CommandErrors.Inc()
	}
}

func (m *Metrics) ObserveTranscription(tier string, d time.Duration) {
	if m == nil {
		return
	}
	m.TranscriptionDuration.WithLabelValues(tier).Observe(d.Seconds())
}
