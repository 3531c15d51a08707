// Package command holds the handlers that finished voice commands are
// dispatched to.
package command

import (
	"context"
	"fmt"
	"log/slog"

	"voice-actor/clients/ai_bot"
	"voice-actor/monitor"
)

// LogHandler only logs each command.
type LogHandler struct {
	Logger *slog.Logger
}

func (h LogHandler) HandleCommand(_ context.Context, cmd monitor.Command) error {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("command received",
		slog.String("collection_id", cmd.ID.String()),
		slog.String("text", cmd.Result.Text),
		slog.Duration("duration", cmd.Duration),
	)

	return nil
}

// BotHandler forwards each command to the assistant bot and logs its reply.
type BotHandler struct {
	Client ai_bot.AIBotAPI
	Logger *slog.Logger
}

func (h BotHandler) HandleCommand(ctx context.Context, cmd monitor.Command) error {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	resp, err := h.Client.SendPrompt(ctx, ai_bot.Prompt{
		ID:                  cmd.ID.String(),
		Text:                cmd.Result.Text,
		NoSpeechProbability: cmd.Result.NoSpeechProbability,
	})
	if err != nil {
		return fmt.Errorf("send command to bot: %w", err)
	}

	logger.Info("bot response",
		slog.String("collection_id", cmd.ID.String()),
		slog.String("response", resp),
	)

	return nil
}
