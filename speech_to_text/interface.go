package speech_to_text

import (
	"time"

	"github.com/go-audio/audio"
)

type Interface interface {
	Transcribe(buf audio.Buffer) (*Result, error)
}

// Result is a transcript together with the engine's confidence that the audio
// held no speech at all.
type Result struct {
	Text                string
	NoSpeechProbability float64
	Segments            []Segment
}

type Segment struct {
	Start, End time.Duration
	Text       string
	Tokens     []Token
}

type Token struct {
	Text string
	P    float32
}
