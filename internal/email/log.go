package email

import (
	"context"

	"shelfkeeper-backend/internal/logger"
)

// LogSender writes messages to the log instead of delivering them.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) error {
	logger.InfoContext(ctx, "email not delivered (log sender)", "to", msg.To, "subject", msg.Subject, "body", msg.Text)
	return nil
}
