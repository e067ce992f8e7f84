// Package notify delivers out-of-band credentials (login codes, password
// reset links) to users.
package notify

import (
	"context"
	"log/slog"
)

// Notifier is the delivery channel for transient credentials. Production
// deployments plug an email or SMS provider in here.
type Notifier interface {
	SendOTP(ctx context.Context, email, code string) error
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogNotifier writes deliveries to the application log. It stands in for a
// real provider in development and tests.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendOTP(_ context.Context, email, code string) error {
	n.logger.Info("login code issued", "email", email, "code", code)
	return nil
}

func (n *LogNotifier) SendPasswordReset(_ context.Context, email, token string) error {
	n.logger.Info("password reset token issued", "email", email, "token", token)
	return nil
}
