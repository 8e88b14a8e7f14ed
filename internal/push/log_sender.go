package push

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const ChannelLog = "log"

// LogSender only logs messages. Used in development when no FCM project
// is configured.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Channel() string { return ChannelLog }

func (s *LogSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	s.log.Info().
		Str("message_id", id).
		Str("title", msg.Title).
		Str("body", msg.Body).
		Interface("data", msg.Data).
		Msg("push message")
	return id, nil
}
