package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSender stands in for the real email/SMS gateways: it logs the payload
// and reports success. Swap it for a transport-backed Sender in production.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log.With().Str("component", "sender").Logger()}
}

func (s *LogSender) Send(ctx context.Context, n Notification) error {
	s.log.Info().
		Str("notification_id", n.ID.String()).
		Str("channel", string(n.Channel)).
		Str("recipient", n.Recipient).
		Str("subject", n.Subject).
		Msg("notification delivered")
	return nil
}
