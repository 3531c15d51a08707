// Package wakeword decides whether a transcribed snapshot contains the phrase
// that starts command capture.
package wakeword

import (
	"strings"

	"voice-actor/speech_to_text"
)

// Predicate inspects the full transcription of a snapshot.
type Predicate interface {
	Detect(result *speech_to_text.Result) bool
}

// TextPredicate only needs the transcript text.
type TextPredicate interface {
	DetectText(text string) bool
}

type textOnly struct {
	predicate TextPredicate
}

// TextOnly adapts a TextPredicate so it can be used where a Predicate is
// expected.
func TextOnly(p TextPredicate) Predicate {
	return textOnly{predicate: p}
}

func (t textOnly) Detect(result *speech_to_text.Result) bool {
	if result == nil {
		return false
	}

	return t.predicate.DetectText(result.Text)
}

// Phrase matches any of its phrases anywhere in the transcript, ignoring case
// and punctuation.
type Phrase struct {
	phrases []string

	// MaxNoSpeech rejects results the engine scored above it. Zero disables
	// the check.
	MaxNoSpeech float64
}

func NewPhrase(phrases ...string) *Phrase {
	normalized := make([]string, 0, len(phrases))

	for _, p := range phrases {
		if n := normalize(p); n != "" {
			normalized = append(normalized, n)
		}
	}

	return &Phrase{phrases: normalized}
}

func (p *Phrase) Detect(result *speech_to_text.Result) bool {
	if result == nil {
		return false
	}

	if p.MaxNoSpeech > 0 && result.NoSpeechProbability > p.MaxNoSpeech {
		return false
	}

	return p.DetectText(result.Text)
}

func (p *Phrase) DetectText(text string) bool {
	detected := normalize(text)

	for _, phrase := range p.phrases {
		if strings.Contains(detected, phrase) {
			return true
		}
	}

	return false
}

// normalize keeps only lowercase alphanumerics and single spaces, so "Hey,
// smart-home!" and "hey smart home" compare equal.
func normalize(text string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ' || r == '-' || r == '\t' || r == '\n':
			return ' '
		}

		return -1
	}, text)

	return strings.Join(strings.Fields(mapped), " ")
}
