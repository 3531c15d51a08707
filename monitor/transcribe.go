package monitor

import (
	"time"

	"voice-actor/metrics"
	"voice-actor/speech_to_text"

	"github.com/go-audio/audio"
)

const (
	tierFast = "fast"
	tierSlow = "slow"
)

func transcribe(engine speech_to_text.Interface, tier string, buf audio.Buffer, m *metrics.Metrics) (*speech_to_text.Result, error) {
	start := time.Now()

	result, err := engine.Transcribe(buf)

	m.ObserveTranscription(tier, time.Since(start))

	return result, err
}
