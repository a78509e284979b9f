// internal/app/system/mailer/mailer.go
package mailer

import (
	"context"

	"go.uber.org/zap"
)

// Email is one outgoing message.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers email.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// LogSender records messages in the log instead of delivering them.
// Invitations are not actually mailed; this is the only Sender.
type LogSender struct {
	From     string
	FromName string
	Log      *zap.Logger
}

// NewLogSender returns a LogSender that reports as from/fromName.
func NewLogSender(from, fromName string, logger *zap.Logger) *LogSender {
	return &LogSender{From: from, FromName: fromName, Log: logger}
}

// Send logs e and reports success.
func (s *LogSender) Send(_ context.Context, e Email) error {
	s.Log.Info("email send (simulated)",
		zap.String("from", s.From),
		zap.String("from_name", s.FromName),
		zap.String("to", e.To),
		zap.String("subject", e.Subject),
		zap.Int("text_bytes", len(e.TextBody)),
		zap.Int("html_bytes", len(e.HTMLBody)),
	)
	return nil
}
