package sender

import (
	"context"
	"time"
)

type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// EmailSender delivers one rendered email. html is the primary body, text the
// plain-text alternative.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, html, text string) (SendResult, error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, msg string) (SendResult, error)
}
