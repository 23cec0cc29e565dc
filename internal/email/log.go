package email

import (
	"context"

	"github.com/jwalitptl/patient-api/pkg/logger"
)

type logSender struct {
	logger *logger.Logger
}

// NewLogSender returns a Sender that only logs. It is used when no SMTP
// host is configured.
func NewLogSender(l *logger.Logger) Sender {
	return &logSender{logger: l}
}

func (s *logSender) Send(_ context.Context, msg *Message) error {
	s.logger.ZL.Info().
		Str("to", logger.MaskEmail(msg.To)).
		Str("subject", msg.Subject).
		Msg("email delivery disabled, message logged")
	return nil
}
