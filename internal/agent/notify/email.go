package notify

import "context"

// EmailSender delivers a single message. Implementations: SMTP, SendGrid, SES, stub.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

type EmailMessage struct {
	To      string
	Subject string
	Body    string // plain text
}
