package speech_to_text

import "strings"

// NewResult keeps the spoken segments of a decode and scores how likely it is
// that nothing was said. Annotations such as "[BLANK_AUDIO]" or "(music)" and
// repeated segments are dropped.
func NewResult(segments []Segment) *Result {
	seenText := make(map[string]bool)

	kept := make([]Segment, 0, len(segments))
	texts := make([]string, 0, len(segments))

	for _, segment := range segments {
		text := strings.TrimSpace(segment.Text)

		if text == "" || isAnnotation(text) {
			continue
		}

		// whisper tends to repeat itself on trailing silence
		if seenText[text] {
			continue
		}
		seenText[text] = true

		kept = append(kept, segment)
		texts = append(texts, text)
	}

	return &Result{
		Text:                strings.Join(texts, " "),
		NoSpeechProbability: noSpeechProbability(kept),
		Segments:            kept,
	}
}

func isAnnotation(text string) bool {
	first, last := text[0], text[len(text)-1]

	return first == '(' || first == '[' || last == ')' || last == ']'
}

func isSpecialToken(text string) bool {
	return strings.HasPrefix(text, "[_") || strings.HasPrefix(text, "<|")
}

// noSpeechProbability is one minus the mean probability of the text tokens.
// Segments without token data count as confident speech.
func noSpeechProbability(segments []Segment) float64 {
	if len(segments) == 0 {
		return 1
	}

	var (
		sum   float64
		count int
	)

	for _, segment := range segments {
		for _, token := range segment.Tokens {
			if isSpecialToken(token.Text) {
				continue
			}

			sum += float64(token.P)
			count++
		}
	}

	if count == 0 {
		for _, segment := range segments {
			if len(segment.Tokens) > 0 {
				return 1
			}
		}

		return 0
	}

	p := 1 - sum/float64(count)

	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
