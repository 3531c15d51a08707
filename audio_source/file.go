package audio_source

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-audio/audio"
	"github.com/mjibson/go-dsp/wav"
	"github.com/spf13/afero"
)

// ErrFormat is returned when a replayed file does not match the process-wide
// sample format.
var ErrFormat = errors.New("unsupported wav format")

type fileImpl struct {
	file      afero.File
	wav       *wav.Wav
	remaining int
	realtime  bool
	lastRead  time.Time
	exhausted bool
	logger    *slog.Logger
}

type FileConfig struct {
	FileSys afero.Fs
	Path    string
	// Realtime makes Record block for the duration of the audio it returns,
	// as a microphone would.
	Realtime bool
	Logger   *slog.Logger
}

// NewFile replays a 16kHz mono PCM wav file. Once the file is exhausted every
// Record returns silence.
func NewFile(cfg *FileConfig) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.FileSys == nil {
		return nil, fmt.Errorf("fileSys is nil")
	}

	if cfg.Path == "" {
		return nil, fmt.Errorf("path is empty")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	f, err := cfg.FileSys.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Path, err)
	}

	w, err := wav.New(f)
	if err != nil {
		_ = f.Close()

		return nil, fmt.Errorf("read wav header %s: %w", cfg.Path, err)
	}

	if w.SampleRate != SampleRate || w.NumChannels != Channels {
		_ = f.Close()

		return nil, fmt.Errorf("%w: %s is %d Hz with %d channels, want %d Hz mono",
			ErrFormat, cfg.Path, w.SampleRate, w.NumChannels, SampleRate)
	}

	logger.Info("replaying wav file",
		slog.String("path", cfg.Path),
		slog.Duration("duration", w.Duration),
		slog.Bool("realtime", cfg.Realtime),
	)

	return &fileImpl{
		file:      f,
		wav:       w,
		remaining: w.Samples,
		realtime:  cfg.Realtime,
		logger:    logger,
	}, nil
}

func (f *fileImpl) Record(samples int) (*audio.Float32Buffer, error) {
	data := make([]float32, samples)

	n := min(samples, f.remaining)
	if n > 0 {
		err := f.read(data[:n])
		if err != nil {
			return nil, err
		}

		f.remaining -= n
	}

	if f.remaining == 0 && !f.exhausted {
		f.exhausted = true
		f.logger.Info("wav file exhausted, recording silence")
	}

	if f.realtime {
		f.pace(samples)
	}

	return NewBuffer(data), nil
}

// read decodes len(dst) samples into dst as signed floats in [-1, 1).
// ReadFloats is not used because it maps PCM onto [0, 1].
func (f *fileImpl) read(dst []float32) error {
	raw, err := f.wav.ReadSamples(len(dst))
	if err != nil {
		return fmt.Errorf("read samples: %w", err)
	}

	switch samples := raw.(type) {
	case []int16:
		for i, v := range samples {
			dst[i] = float32(v) / 32768
		}
	case []uint8:
		for i, v := range samples {
			dst[i] = (float32(v) - 128) / 128
		}
	case []float32:
		copy(dst, samples)
	default:
		return fmt.Errorf("%w: unexpected sample type %T", ErrFormat, raw)
	}

	return nil
}

// pace sleeps so that consecutive reads are spaced by the audio they return.
func (f *fileImpl) pace(samples int) {
	d := time.Duration(samples) * time.Second / SampleRate

	if f.lastRead.IsZero() {
		f.lastRead = time.Now()
	}

	next := f.lastRead.Add(d)
	time.Sleep(time.Until(next))

	f.lastRead = next
}

func (f *fileImpl) Close() error {
	return f.file.Close()
}
