package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"voice-actor/audio_source"
	"voice-actor/metrics"
	"voice-actor/speech_to_text"

	"github.com/go-audio/audio"
	"github.com/google/uuid"
)

const (
	DefaultSilenceThreshold  = 0.7
	DefaultCollectionTimeout = time.Second * 15
)

type Outcome int

const (
	// OutcomeSilence means a segment scored as no speech ended the command.
	OutcomeSilence Outcome = iota + 1
	// OutcomeTimeout means no segment arrived in time.
	OutcomeTimeout
	// OutcomeCancelled means the context ended mid-collection.
	OutcomeCancelled
	// OutcomeFailed accompanies an engine error.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSilence:
		return "silence"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

type collectorImpl struct {
	source           SegmentSource
	fastEngine       speech_to_text.Interface
	slowEngine       speech_to_text.Interface
	handler          CommandHandler
	silenceThreshold float64
	timeout          time.Duration
	metrics          *metrics.Metrics
	logger           *slog.Logger
}

type CollectorConfig struct {
	Source SegmentSource
	// FastEngine checks each segment for silence.
	FastEngine speech_to_text.Interface
	// SlowEngine transcribes the finished command.
	SlowEngine       speech_to_text.Interface
	Handler          CommandHandler
	SilenceThreshold float64
	Timeout          time.Duration
	Metrics          *metrics.Metrics
	Logger           *slog.Logger
}

func NewCollector(cfg *CollectorConfig) (Collector, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Source == nil {
		return nil, fmt.Errorf("source is nil")
	}

	if cfg.FastEngine == nil {
		return nil, fmt.Errorf("fastEngine is nil")
	}

	if cfg.SlowEngine == nil {
		return nil, fmt.Errorf("slowEngine is nil")
	}

	if cfg.Handler == nil {
		return nil, fmt.Errorf("handler is nil")
	}

	threshold := cfg.SilenceThreshold
	if threshold == 0 {
		threshold = DefaultSilenceThreshold
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultCollectionTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &collectorImpl{
		source:           cfg.Source,
		fastEngine:       cfg.FastEngine,
		slowEngine:       cfg.SlowEngine,
		handler:          cfg.Handler,
		silenceThreshold: threshold,
		timeout:          timeout,
		metrics:          cfg.Metrics,
		logger:           logger,
	}, nil
}

// Collect switches capture to long segments and accumulates them until a
// silent segment arrives or the wait for the next one times out. Capture is
// always returned to short mode before Collect returns. Only a silence
// outcome with at least one accumulated segment reaches the handler. Engine
// errors are returned with OutcomeFailed.
func (c *collectorImpl) Collect(ctx context.Context) (Outcome, error) {
	id := uuid.New()
	logger := c.logger.With(slog.String("collection_id", id.String()))

	logger.Debug("expecting a command")

	collected, outcome, err := func() ([]*audio.Float32Buffer, Outcome, error) {
		c.source.Trigger()
		defer c.source.Untrigger()

		return c.collect(ctx, logger)
	}()
	if err != nil {
		return outcome, err
	}

	c.metrics.CollectionFinished(outcome.String())

	logger.Info("collection finished",
		slog.String("outcome", outcome.String()),
		slog.Int("segments", len(collected)),
	)

	if outcome != OutcomeSilence || len(collected) == 0 {
		return outcome, nil
	}

	command := audio_source.Concat(collected...)

	result, err := transcribe(c.slowEngine, tierSlow, command, c.metrics)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("transcribe command: %w", err)
	}

	cmd := Command{
		ID:       id,
		Result:   *result,
		Segments: len(collected),
		Duration: audio_source.DurationOf(command),
	}

	logger.Info("sending command", slog.String("text", result.Text))

	err = c.handler.HandleCommand(ctx, cmd)
	c.metrics.CommandDispatched(err)

	if err != nil {
		logger.Error("error handling command", slog.String("error", err.Error()))
	}

	return outcome, nil
}

func (c *collectorImpl) collect(ctx context.Context, logger *slog.Logger) ([]*audio.Float32Buffer, Outcome, error) {
	collected := make([]*audio.Float32Buffer, 0)

	for {
		segment, ok := c.source.NextSegment(ctx, c.timeout)
		if !ok {
			if ctx.Err() != nil {
				return collected, OutcomeCancelled, nil
			}

			logger.Debug("no segment before timeout", slog.Duration("timeout", c.timeout))

			return collected, OutcomeTimeout, nil
		}

		result, err := transcribe(c.fastEngine, tierFast, segment, c.metrics)
		if err != nil {
			return nil, OutcomeFailed, fmt.Errorf("transcribe segment: %w", err)
		}

		if result.NoSpeechProbability > c.silenceThreshold {
			logger.Debug("no further speech",
				slog.Float64("no_speech_probability", result.NoSpeechProbability))

			return collected, OutcomeSilence, nil
		}

		collected = append(collected, segment)
	}
}
