package service

import (
	"context"

	"go.uber.org/zap"
)

// logMailer records outgoing notifications in the structured log.
// It stands in until a real delivery channel is configured; the
// notifier only needs hand-off semantics.
type logMailer struct {
	from   string
	logger *zap.Logger
}

func NewLogMailer(from string, logger *zap.Logger) Mailer {
	return &logMailer{from: from, logger: logger}
}

func (m *logMailer) Send(_ context.Context, to, subject, body string) error {
	m.logger.Info("outgoing notification",
		zap.String("from", m.from),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}
