package monitor

import (
	"context"
	"time"

	"voice-actor/speech_to_text"

	"github.com/go-audio/audio"
	"github.com/google/uuid"
)

// SnapshotSource is the short, rolling side of capture.
type SnapshotSource interface {
	NextSnapshot(ctx context.Context, timeout time.Duration) (*audio.Float32Buffer, bool)
	DrainSnapshots() int
}

// SegmentSource is the long side of capture, driven by the trigger.
type SegmentSource interface {
	Trigger()
	Untrigger()
	NextSegment(ctx context.Context, timeout time.Duration) (*audio.Float32Buffer, bool)
}

// Command is a finished utterance, transcribed by the slow engine.
type Command struct {
	ID       uuid.UUID
	Result   speech_to_text.Result
	Segments int
	Duration time.Duration
}

type CommandHandler interface {
	HandleCommand(ctx context.Context, cmd Command) error
}

type Collector interface {
	Collect(ctx context.Context) (Outcome, error)
}

type Interface interface {
	Run(ctx context.Context) error
}
