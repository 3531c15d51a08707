package capture

import (
	"context"
	"time"

	"github.com/go-audio/audio"
)

type Interface interface {
	Start(ctx context.Context) error
	Run(ctx context.Context) error
	Stop()
	Wait() error

	Trigger()
	Untrigger()
	Mode() Mode

	NextSnapshot(ctx context.Context, timeout time.Duration) (*audio.Float32Buffer, bool)
	DrainSnapshots() int
	NextSegment(ctx context.Context, timeout time.Duration) (*audio.Float32Buffer, bool)
}
