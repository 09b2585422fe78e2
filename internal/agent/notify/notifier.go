package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/doctor-appointment-agent/server/internal/agent/model"
	errx "github.com/doctor-appointment-agent/server/internal/core/error"
	logx "github.com/doctor-appointment-agent/server/pkg/logger"
	"github.com/doctor-appointment-agent/server/pkg/metrics"
)

const ConfirmationSubject = "Appointment Confirmation"

// Notifier sends patient notifications. It makes one attempt per call;
// a relay failure is logged as a warning and returned as a delivery error.
type Notifier struct {
	sender EmailSender
}

func NewNotifier(sender EmailSender) *Notifier {
	return &Notifier{sender: sender}
}

func (n *Notifier) Notify(ctx context.Context, subject, body, recipient string) error {
	recipient = strings.TrimSpace(recipient)
	if !strings.Contains(recipient, "@") {
		return errx.Validation("recipient %q is not a valid address", recipient)
	}

	start := time.Now()
	err := n.sender.Send(ctx, EmailMessage{To: recipient, Subject: subject, Body: body})
	if err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		logx.Warn().Err(err).Str("recipient", recipient).Str("subject", subject).Msg("notification delivery failed")
		return errx.Delivery(err)
	}

	metrics.Notifications.WithLabelValues("sent").Inc()
	logx.Info().Str("recipient", recipient).Str("subject", subject).Dur("took", time.Since(start)).Msg("notification sent")
	return nil
}

// AppointmentConfirmation renders the confirmation email for an appointment.
func AppointmentConfirmation(doctorName string, at time.Time) (subject, body string) {
	name := strings.TrimSpace(doctorName)
	for _, p := range []string{"Dr. ", "Dr ", "dr. ", "dr "} {
		name = strings.TrimPrefix(name, p)
	}
	body = fmt.Sprintf("Your appointment with Dr. %s on %s at %s is confirmed.",
		name, at.Format(model.DateLayout), at.Format(model.TimeLayout))
	return ConfirmationSubject, body
}
