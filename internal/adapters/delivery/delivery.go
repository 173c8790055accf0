// Package delivery carries the engine's effects to a participant's chat.
package delivery

import (
	"context"
	"fmt"

	"github.com/varvaraparamon/final-eval-bot/internal/domain/conversation"
	"github.com/varvaraparamon/final-eval-bot/pkg/logger"
	"github.com/varvaraparamon/final-eval-bot/pkg/metrics"
)

// Channel is the chat transport of one participant's messages.
type Channel interface {
	Send(ctx context.Context, participantID int64, p conversation.Prompt) error
	EditMarkup(ctx context.Context, participantID, messageID int64, buttons [][]conversation.Button) error
	ClearMarkup(ctx context.Context, participantID, messageID int64) error
}

// Apply performs effects in order. A failed markup edit is replaced by its
// fallback message and a failed markup removal is ignored, so only a failed
// Send is returned.
func Apply(ctx context.Context, ch Channel, participantID int64, effects []conversation.Effect, log logger.Logger) error {
	for _, eff := range effects {
		switch e := eff.(type) {
		case conversation.Send:
			if err := ch.Send(ctx, participantID, e.Prompt); err != nil {
				return fmt.Errorf("send to %d: %w", participantID, err)
			}
		case conversation.EditMarkup:
			err := ch.EditMarkup(ctx, participantID, e.MessageID, e.Buttons)
			if err == nil {
				continue
			}
			metrics.RecordDeliveryFallback("edit_markup")
			log.Debug(ctx, "markup edit failed, sending fallback",
				logger.Int64("participant", participantID),
				logger.Int64("message", e.MessageID),
				logger.Error(err))
			if err := ch.Send(ctx, participantID, e.Fallback); err != nil {
				return fmt.Errorf("send fallback to %d: %w", participantID, err)
			}
		case conversation.ClearMarkup:
			if err := ch.ClearMarkup(ctx, participantID, e.MessageID); err != nil {
				metrics.RecordDeliveryFallback("clear_markup")
				log.Debug(ctx, "markup removal failed",
					logger.Int64("participant", participantID),
					logger.Int64("message", e.MessageID),
					logger.Error(err))
			}
		}
	}
	return nil
}
