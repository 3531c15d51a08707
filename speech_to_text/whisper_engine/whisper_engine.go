package whisper_engine

import (
	"fmt"
	"io"

	"voice-actor/speech_to_text"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/go-audio/audio"
)

// whisper rejects anything shorter than a second, so short chunks are padded
// with silence
const minSamples = 16000

type engineImpl struct {
	model    whisper.Model
	language string
}

type Config struct {
	Model    whisper.Model
	Language string
}

func New(cfg *Config) (speech_to_text.Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Model == nil {
		return nil, fmt.Errorf("model is nil")
	}

	return &engineImpl{
		model:    cfg.Model,
		language: cfg.Language,
	}, nil
}

func (e *engineImpl) Transcribe(buf audio.Buffer) (*speech_to_text.Result, error) {
	// Create processing context
	context, err := e.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("new context: %w", err)
	}

	if e.language != "" {
		err = context.SetLanguage(e.language)
		if err != nil {
			return nil, fmt.Errorf("set language %q: %w", e.language, err)
		}
	}

	data := buf.AsFloat32Buffer().Data
	if len(data) < minSamples {
		padded := make([]float32, minSamples)
		copy(padded, data)
		data = padded
	}

	var cb whisper.SegmentCallback

	err = context.Process(data, cb)
	if err != nil {
		return nil, fmt.Errorf("process: %w", err)
	}

	segments, err := readSegments(context)
	if err != nil {
		return nil, err
	}

	return speech_to_text.NewResult(segments), nil
}

func readSegments(context whisper.Context) ([]speech_to_text.Segment, error) {
	segments := make([]speech_to_text.Segment, 0)

	for {
		segment, err := context.NextSegment()
		if err == io.EOF {
			return segments, nil
		} else if err != nil {
			return nil, fmt.Errorf("next segment: %w", err)
		}

		tokens := make([]speech_to_text.Token, 0, len(segment.Tokens))
		for _, token := range segment.Tokens {
			tokens = append(tokens, speech_to_text.Token{
				Text: token.Text,
				P:    token.P,
			})
		}

		segments = append(segments, speech_to_text.Segment{
			Start:  segment.Start,
			End:    segment.End,
			Text:   segment.Text,
			Tokens: tokens,
		})
	}
}
