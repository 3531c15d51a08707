package ai_bot

import "context"

// Prompt is a spoken command forwarded to the assistant bot.
type Prompt struct {
	ID                  string  `json:"id"`
	Text                string  `json:"text"`
	NoSpeechProbability float64 `json:"no_speech_probability"`
}

type AIBotAPI interface {
	SendPrompt(ctx context.Context, prompt Prompt) (string, error)
}
