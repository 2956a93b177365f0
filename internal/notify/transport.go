package notify

import (
	"context"
	"log/slog"
)

// Transport is the external delivery collaborator. The engine never
// inspects transport internals; it only requires an outcome and, on
// failure, an error description.
type Transport interface {
	// Send attempts delivery to a notification channel token.
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// LogTransport is a development transport that logs instead of
// delivering. Every send succeeds.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport creates a transport that logs deliveries.
func NewLogTransport(logger *slog.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

// Send logs the would-be delivery and reports success.
func (t *LogTransport) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	t.logger.Info("would deliver notification",
		"token", token,
		"title", title,
		"body", body,
	)
	return nil
}
