// Package notification delivers automated messages to contacts over
// their conversation channel. Delivery providers sit behind the
// Gateway interface; a circuit breaker keeps a flapping provider from
// stalling the automation engine.
package notification

import (
	"context"
	"log/slog"
)

// Gateway delivers one message to a destination on a channel. The
// subject is optional; channels without one (sms, whatsapp) ignore it.
type Gateway interface {
	Send(ctx context.Context, channel, to, subject, body string) error
}

// LogGateway writes deliveries to the log instead of a provider. It is
// the default in local mode and in tests.
type LogGateway struct {
	logger *slog.Logger
}

// NewLogGateway creates a log-backed gateway.
func NewLogGateway(logger *slog.Logger) *LogGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogGateway{logger: logger}
}

// Send logs the message.
func (g *LogGateway) Send(ctx context.Context, channel, to, subject, body string) error {
	g.logger.InfoContext(ctx, "message delivered",
		"channel", channel,
		"to", to,
		"subject", subject,
		"body", body,
	)
	return nil
}
