package microphone

import (
	"errors"
	"fmt"
	"log/slog"

	"voice-actor/audio_source"

	"github.com/go-audio/audio"
	"github.com/gordonklaus/portaudio"
)

type micImpl struct {
	stream  *portaudio.Stream
	in      []float32
	pending []float32
	logger  *slog.Logger
}

type Config struct {
	// FramesPerBuffer is the size of a single stream read, normally one chunk.
	FramesPerBuffer int
	Logger          *slog.Logger
}

// New opens the default input device at 16kHz mono. The stream is started
// immediately and runs until Close.
func New(cfg *Config) (audio_source.Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.FramesPerBuffer <= 0 {
		return nil, fmt.Errorf("framesPerBuffer must be positive, got %d", cfg.FramesPerBuffer)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	err := portaudio.Initialize()
	if err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	in := make([]float32, cfg.FramesPerBuffer)

	stream, err := portaudio.OpenDefaultStream(audio_source.Channels, 0, audio_source.SampleRate, len(in), in)
	if err != nil {
		_ = portaudio.Terminate()

		return nil, fmt.Errorf("open default stream: %w", err)
	}

	err = stream.Start()
	if err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()

		return nil, fmt.Errorf("start stream: %w", err)
	}

	logger.Info("microphone opened",
		slog.Int("sample_rate", audio_source.SampleRate),
		slog.Int("frames_per_buffer", cfg.FramesPerBuffer),
	)

	return &micImpl{
		stream: stream,
		in:     in,
		logger: logger,
	}, nil
}

func (m *micImpl) Record(samples int) (*audio.Float32Buffer, error) {
	data := make([]float32, 0, samples)

	take := min(len(m.pending), samples)
	data = append(data, m.pending[:take]...)
	m.pending = m.pending[take:]

	for len(data) < samples {
		err := m.stream.Read()
		if errors.Is(err, portaudio.InputOverflowed) {
			// samples were dropped by the driver, but the buffer we got is still usable
			m.logger.Debug("input overflowed")
		} else if err != nil {
			return nil, fmt.Errorf("read stream: %w", err)
		}

		need := samples - len(data)
		if need >= len(m.in) {
			data = append(data, m.in...)
		} else {
			data = append(data, m.in[:need]...)
			m.pending = append(m.pending, m.in[need:]...)
		}
	}

	return audio_source.NewBuffer(data), nil
}

func (m *micImpl) Close() error {
	err := m.stream.Stop()
	if err != nil {
		m.logger.Warn("error stopping stream", slog.String("error", err.Error()))
	}

	err = m.stream.Close()
	if err != nil {
		m.logger.Warn("error closing stream", slog.String("error", err.Error()))
	}

	return portaudio.Terminate()
}
