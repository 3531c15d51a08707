package audio_source

import (
	"time"

	"github.com/go-audio/audio"
)

// Whisper only accepts 16kHz mono, so both are fixed for the whole process.
const (
	SampleRate = 16000
	Channels   = 1
)

// Format returns the process-wide sample format.
func Format() *audio.Format {
	return &audio.Format{
		NumChannels: Channels,
		SampleRate:  SampleRate,
	}
}

// NewBuffer wraps samples in a buffer carrying the process-wide format.
func NewBuffer(data []float32) *audio.Float32Buffer {
	return &audio.Float32Buffer{
		Format:         Format(),
		Data:           data,
		SourceBitDepth: 32,
	}
}

// Concat joins buffers end to end into a new buffer. Nil buffers are skipped.
func Concat(buffers ...*audio.Float32Buffer) *audio.Float32Buffer {
	total := 0
	for _, b := range buffers {
		if b != nil {
			total += len(b.Data)
		}
	}

	data := make([]float32, 0, total)
	for _, b := range buffers {
		if b != nil {
			data = append(data, b.Data...)
		}
	}

	return NewBuffer(data)
}

// SamplesFor returns how many samples cover d at the fixed sample rate.
func SamplesFor(d time.Duration) int {
	return int(d * SampleRate / time.Second)
}

// DurationOf returns the playback length of buf.
func DurationOf(buf *audio.Float32Buffer) time.Duration {
	if buf == nil {
		return 0
	}

	return time.Duration(len(buf.Data)) * time.Second / SampleRate
}
