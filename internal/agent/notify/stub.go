package notify

import (
	"context"

	logx "github.com/doctor-appointment-agent/server/pkg/logger"
)

// StubSender logs instead of sending. Used with MAIL_PROVIDER=stub.
type StubSender struct{}

func (StubSender) Send(_ context.Context, msg EmailMessage) error {
	logx.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("stub email sender: would send email")
	return nil
}
