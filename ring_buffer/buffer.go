package ring_buffer

import (
	"voice-actor/audio_source"

	"github.com/go-audio/audio"
)

// Buffer keeps the most recent chunks of audio, evicting the oldest once it
// holds capacity chunks. It is not safe for concurrent use.
type Buffer struct {
	chunks []*audio.Float32Buffer
	head   int
	size   int
}

func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}

	return &Buffer{
		chunks: make([]*audio.Float32Buffer, capacity),
	}
}

func (r *Buffer) Add(chunk *audio.Float32Buffer) {
	r.chunks[r.head] = chunk
	r.head = (r.head + 1) % len(r.chunks)

	if r.size < len(r.chunks) {
		r.size++
	}
}

func (r *Buffer) Len() int {
	return r.size
}

func (r *Buffer) Full() bool {
	return r.size == len(r.chunks)
}

// Read concatenates the buffered chunks, oldest first.
func (r *Buffer) Read() *audio.Float32Buffer {
	start := (r.head - r.size + len(r.chunks)) % len(r.chunks)

	ordered := make([]*audio.Float32Buffer, r.size)
	for i := 0; i < r.size; i++ {
		ordered[i] = r.chunks[(start+i)%len(r.chunks)]
	}

	return audio_source.Concat(ordered...)
}

func (r *Buffer) Clear() {
	for i := range r.chunks {
		r.chunks[i] = nil
	}

	r.head = 0
	r.size = 0
}
