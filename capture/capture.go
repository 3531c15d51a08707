package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"voice-actor/audio_source"
	"voice-actor/metrics"
	"voice-actor/ring_buffer"

	"github.com/go-audio/audio"
)

const (
	DefaultChunkDuration = time.Millisecond * 500
	DefaultWindow        = time.Second * 2
)

// ErrAlreadyRunning is returned when starting a capture loop that is already running.
var ErrAlreadyRunning = errors.New("capture already running")

type Mode int32

const (
	// ModeShort fills the rolling buffer and emits snapshots.
	ModeShort Mode = iota
	// ModeLong emits every chunk as a long segment.
	ModeLong
)

func (m Mode) String() string {
	switch m {
	case ModeShort:
		return "short"
	case ModeLong:
		return "long"
	default:
		return fmt.Sprintf("mode(%d)", int32(m))
	}
}

type captureImpl struct {
	source       audio_source.Interface
	chunkSamples int
	rolling      *ring_buffer.Buffer

	short *Queue
	long  *Queue

	// mode and generation are guarded by long.mu so that switching modes and
	// clearing the long queue happen as one step.
	mode       Mode
	generation uint64

	running  atomic.Bool
	stopping atomic.Bool
	wg       sync.WaitGroup
	errMu    sync.Mutex
	err      error

	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Config struct {
	Source        audio_source.Interface
	ChunkDuration time.Duration
	// Window is the length of a rolling snapshot. It must be a whole number of chunks.
	Window  time.Duration
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Source == nil {
		return nil, fmt.Errorf("source is nil")
	}

	chunkDuration := cfg.ChunkDuration
	if chunkDuration == 0 {
		chunkDuration = DefaultChunkDuration
	}

	window := cfg.Window
	if window == 0 {
		window = DefaultWindow
	}

	if chunkDuration < 0 || window < chunkDuration || window%chunkDuration != 0 {
		return nil, fmt.Errorf("window %s must be a positive multiple of chunk duration %s", window, chunkDuration)
	}

	chunkSamples := audio_source.SamplesFor(chunkDuration)
	if chunkSamples < 1 {
		return nil, fmt.Errorf("chunk duration %s is shorter than one sample", chunkDuration)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &captureImpl{
		source:       cfg.Source,
		chunkSamples: chunkSamples,
		rolling:      ring_buffer.New(int(window / chunkDuration)),
		short:        NewQueue(),
		long:         NewQueue(),
		mode:         ModeShort,
		metrics:      cfg.Metrics,
		logger:       logger,
	}, nil
}

// Start runs the capture loop on its own goroutine. Use Wait to collect its
// result.
func (c *captureImpl) Start(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	c.stopping.Store(false)

	c.errMu.Lock()
	c.err = nil
	c.errMu.Unlock()

	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		defer c.running.Store(false)

		err := c.loop(ctx)

		c.errMu.Lock()
		c.err = err
		c.errMu.Unlock()
	}()

	return nil
}

// Run is the blocking form of Start.
func (c *captureImpl) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer c.running.Store(false)

	c.stopping.Store(false)

	return c.loop(ctx)
}

// Stop asks the loop to exit once the chunk being recorded is finished.
func (c *captureImpl) Stop() {
	c.stopping.Store(true)
}

func (c *captureImpl) Wait() error {
	c.wg.Wait()

	c.errMu.Lock()
	defer c.errMu.Unlock()

	return c.err
}

func (c *captureImpl) Trigger() {
	c.long.mu.Lock()
	dropped := c.long.clearLocked()
	c.mode = ModeLong
	c.generation++
	c.long.mu.Unlock()

	c.logger.Debug("capture triggered", slog.Int("stale_segments", dropped))
}

func (c *captureImpl) Untrigger() {
	c.long.mu.Lock()
	c.mode = ModeShort
	c.long.mu.Unlock()

	c.logger.Debug("capture untriggered")
}

func (c *captureImpl) Mode() Mode {
	mode, _ := c.currentMode()

	return mode
}

func (c *captureImpl) NextSnapshot(ctx context.Context, timeout time.Duration) (*audio.Float32Buffer, bool) {
	return c.short.Get(ctx, timeout)
}

func (c *captureImpl) DrainSnapshots() int {
	return c.short.Drain()
}

func (c *captureImpl) NextSegment(ctx context.Context, timeout time.Duration) (*audio.Float32Buffer, bool) {
	return c.long.Get(ctx, timeout)
}

func (c *captureImpl) currentMode() (Mode, uint64) {
	c.long.mu.Lock()
	defer c.long.mu.Unlock()

	return c.mode, c.generation
}

func (c *captureImpl) loop(ctx context.Context) error {
	c.logger.Info("starting capture", slog.Int("chunk_samples", c.chunkSamples))

	for {
		if c.stopping.Load() {
			c.logger.Info("capture stopped")

			return nil
		}

		if ctx.Err() != nil {
			c.logger.Info("capture exiting gracefully")

			return nil
		}

		mode, generation := c.currentMode()

		var err error
		if mode == ModeLong {
			err = c.pollLong(generation)
		} else {
			err = c.pollShort()
		}

		if err != nil {
			return err
		}
	}
}

func (c *captureImpl) pollShort() error {
	chunk, err := c.record()
	if err != nil {
		return err
	}

	c.rolling.Add(chunk)

	if c.rolling.Full() {
		c.short.Put(c.rolling.Read())
		c.metrics.SnapshotEmitted()
	}

	return nil
}

func (c *captureImpl) pollLong(generation uint64) error {
	// flush the pre-roll so the start of the command is not clipped
	if c.rolling.Len() > 0 {
		preRoll := c.rolling.Read()
		c.rolling.Clear()

		c.emitSegment(generation, preRoll)
	}

	chunk, err := c.record()
	if err != nil {
		return err
	}

	c.emitSegment(generation, chunk)

	return nil
}

// emitSegment queues buf unless the trigger it was recorded under has since
// been released or replaced.
func (c *captureImpl) emitSegment(generation uint64, buf *audio.Float32Buffer) {
	c.long.mu.Lock()
	current := c.mode == ModeLong && c.generation == generation
	if current {
		c.long.putLocked(buf)
	}
	c.long.mu.Unlock()

	if !current {
		c.logger.Debug("dropping segment from a released trigger",
			slog.Duration("length", audio_source.DurationOf(buf)))

		return
	}

	c.metrics.SegmentEmitted()
}

func (c *captureImpl) record() (*audio.Float32Buffer, error) {
	chunk, err := c.source.Record(c.chunkSamples)
	if err != nil {
		return nil, fmt.Errorf("record chunk: %w", err)
	}

	return chunk, nil
}
