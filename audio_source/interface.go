package audio_source

import "github.com/go-audio/audio"

// Interface is a blocking capture primitive. Record returns once the
// requested number of mono samples has been captured and cannot be
// interrupted part way through.
type Interface interface {
	Record(samples int) (*audio.Float32Buffer, error)
	Close() error
}
