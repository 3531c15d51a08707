package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"voice-actor/metrics"
	"voice-actor/speech_to_text"
	"voice-actor/wakeword"
)

const DefaultLivenessTimeout = time.Second * 10

type monitorImpl struct {
	source          SnapshotSource
	engine          speech_to_text.Interface
	predicate       wakeword.Predicate
	collector       Collector
	livenessTimeout time.Duration
	metrics         *metrics.Metrics
	logger          *slog.Logger
}

type Config struct {
	Source SnapshotSource
	// Engine is the fast engine used for wakeword checks.
	Engine          speech_to_text.Interface
	Predicate       wakeword.Predicate
	Collector       Collector
	LivenessTimeout time.Duration
	Metrics         *metrics.Metrics
	Logger          *slog.Logger
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Source == nil {
		return nil, fmt.Errorf("source is nil")
	}

	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine is nil")
	}

	if cfg.Predicate == nil {
		return nil, fmt.Errorf("predicate is nil")
	}

	if cfg.Collector == nil {
		return nil, fmt.Errorf("collector is nil")
	}

	timeout := cfg.LivenessTimeout
	if timeout == 0 {
		timeout = DefaultLivenessTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &monitorImpl{
		source:          cfg.Source,
		engine:          cfg.Engine,
		predicate:       cfg.Predicate,
		collector:       cfg.Collector,
		livenessTimeout: timeout,
		metrics:         cfg.Metrics,
		logger:          logger,
	}, nil
}

// Run checks snapshots for the wakeword until ctx ends. Engine failures are
// returned; an empty queue just means polling again.
func (m *monitorImpl) Run(ctx context.Context) error {
	m.logger.Info("waiting for wake")

	for {
		if ctx.Err() != nil {
			m.logger.Info("monitor exiting gracefully")

			return nil
		}

		snapshot, ok := m.source.NextSnapshot(ctx, m.livenessTimeout)
		if !ok {
			continue
		}

		result, err := transcribe(m.engine, tierFast, snapshot, m.metrics)
		if err != nil {
			return fmt.Errorf("transcribe snapshot: %w", err)
		}

		detected := m.predicate.Detect(result)
		m.metrics.WakewordChecked(detected)

		if !detected {
			continue
		}

		m.logger.Info("wake word detected", slog.String("text", result.Text))

		_, err = m.collector.Collect(ctx)

		// audio heard while collecting is not a fresh wakeword candidate
		dropped := m.source.DrainSnapshots()
		m.logger.Debug("flushed snapshots", slog.Int("dropped", dropped))

		if err != nil {
			return err
		}
	}
}
