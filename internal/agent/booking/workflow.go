// Package booking implements the appointment booking state machine:
//
//	DRAFT -> PENDING_CONFIRMATION -> CONFIRMED | DECLINED -> TERMINAL
//
// A booking persists the appointment unconfirmed, checkpoints the
// conversation and suspends with ConfirmationPrompt. The next turn of the
// conversation resumes it. The notification flag is committed before the
// notifier is called, so delivery is at most once and a relay failure never
// rolls the confirmation back.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doctor-appointment-agent/server/internal/agent/model"
	"github.com/doctor-appointment-agent/server/internal/agent/notify"
	errx "github.com/doctor-appointment-agent/server/internal/core/error"
	logx "github.com/doctor-appointment-agent/server/pkg/logger"
	"github.com/doctor-appointment-agent/server/pkg/metrics"
)

const (
	ConfirmationPrompt = "Do you want me to send email notification? yes/no"
	StatusPending      = "pending_confirmation"
	confirmAnswer      = "yes"
)

// Store is the subset of the record store the workflow needs.
type Store interface {
	GetUser(ctx context.Context, id uint) (*model.User, error)
	GetDoctor(ctx context.Context, id uint) (*model.Doctor, error)
	CreateAppointment(ctx context.Context, in model.NewAppointment) (*model.Appointment, error)
	GetAppointment(ctx context.Context, id uint) (*model.Appointment, error)
	UpdateAppointment(ctx context.Context, id uint, patch model.AppointmentPatch) (*model.Appointment, error)
	DeleteAppointment(ctx context.Context, id uint) (bool, error)
}

type Notifier interface {
	Notify(ctx context.Context, subject, body, recipient string) error
}

type Config struct {
	ConfirmationTTL time.Duration
	Location        *time.Location
}

type Workflow struct {
	store       Store
	checkpoints model.BookingCheckpointRepository
	notifier    Notifier
	ttl         time.Duration
	loc         *time.Location
	now         func() time.Time
}

func NewWorkflow(store Store, checkpoints model.BookingCheckpointRepository, notifier Notifier, cfg Config) *Workflow {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	ttl := cfg.ConfirmationTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Workflow{
		store:       store,
		checkpoints: checkpoints,
		notifier:    notifier,
		ttl:         ttl,
		loc:         loc,
		now:         time.Now,
	}
}

// Request is a DRAFT booking. The patient is always the signed in user.
type Request struct {
	ConversationID string
	UserID         uint
	DoctorID       uint
	Date           string // YYYY-MM-DD
	Time           string // HH:MM
}

// Suspension is returned when a booking waits for the patient's answer.
type Suspension struct {
	AppointmentID uint      `json:"appointment_id"`
	Status        string    `json:"status"`
	Prompt        string    `json:"prompt"`
	Doctor        string    `json:"doctor"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Result is the outcome of a resolved confirmation.
type Result struct {
	AppointmentID         uint               `json:"appointment_id"`
	NotificationStatus    bool               `json:"notification_status"`
	NotificationDelivered bool               `json:"notification_delivered"`
	State                 model.BookingState `json:"state"`
	Expired               bool               `json:"expired,omitempty"`
	Summary               string             `json:"summary"`
}

// Location is the zone booking slots are read and shown in.
func (w *Workflow) Location() *time.Location { return w.loc }

// ParseSlot reads date and time in the workflow's location.
func (w *Workflow) ParseSlot(date, clock string) (time.Time, error) {
	at, err := time.ParseInLocation(model.DateTimeLayout, strings.TrimSpace(date)+" "+strings.TrimSpace(clock), w.loc)
	if err != nil {
		return time.Time{}, errx.Validation("date must look like 2025-01-12 and time like 15:00, got %q %q", date, clock)
	}
	return at, nil
}

// Book moves a DRAFT to PENDING_CONFIRMATION.
func (w *Workflow) Book(ctx context.Context, req Request) (*Suspension, error) {
	at, err := w.ParseSlot(req.Date, req.Time)
	if err != nil {
		return nil, err
	}
	if req.ConversationID == "" {
		return nil, errx.Validation("conversation id is required to book")
	}

	user, err := w.store.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	doctor, err := w.store.GetDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	if !doctor.Available {
		return nil, errx.Validation("%s is not available for appointments", doctor.Name)
	}

	if err := w.resolveStale(ctx, req.ConversationID); err != nil {
		return nil, err
	}

	appt, err := w.store.CreateAppointment(ctx, model.NewAppointment{
		DoctorID:     doctor.ID,
		UserID:       user.ID,
		PatientName:  user.Username,
		PatientEmail: user.Email,
		ScheduledAt:  at,
	})
	if err != nil {
		return nil, err
	}

	now := w.now()
	pending := &model.PendingBooking{
		ConversationID: req.ConversationID,
		AppointmentID:  appt.ID,
		UserID:         user.ID,
		DoctorID:       doctor.ID,
		DoctorName:     doctor.Name,
		PatientEmail:   user.Email,
		ScheduledAt:    at,
		State:          model.BookingPendingConfirmation,
		CreatedAt:      now,
		ExpiresAt:      now.Add(w.ttl),
	}
	if err := w.checkpoints.SavePending(ctx, pending); err != nil {
		if _, derr := w.store.DeleteAppointment(ctx, appt.ID); derr != nil {
			logx.Error().Err(derr).Uint("appointment_id", appt.ID).Msg("failed to roll back unsuspended appointment")
		}
		return nil, err
	}

	metrics.AppointmentsBooked.Inc()
	logx.Info().
		Str("conversation_id", req.ConversationID).
		Uint("appointment_id", appt.ID).
		Uint("doctor_id", doctor.ID).
		Time("expires_at", pending.ExpiresAt).
		Msg("booking suspended for confirmation")

	return &Suspension{
		AppointmentID: appt.ID,
		Status:        StatusPending,
		Prompt:        ConfirmationPrompt,
		Doctor:        doctor.Name,
		Date:          appt.Date(),
		Time:          appt.Time(),
		ExpiresAt:     pending.ExpiresAt,
	}, nil
}

// resolveStale declines an expired checkpoint left in the conversation and
// refuses to start a second booking while one is still waiting.
func (w *Workflow) resolveStale(ctx context.Context, conversationID string) error {
	existing, err := w.checkpoints.LoadPending(ctx, conversationID)
	if err != nil || existing == nil {
		return err
	}
	if !existing.Expired(w.now()) {
		return errx.Conflict("appointment %d is still waiting for a yes/no answer", existing.AppointmentID)
	}
	claimed, err := w.checkpoints.ClaimPending(ctx, conversationID)
	if err != nil || claimed == nil {
		return err
	}
	w.decline(claimed, true)
	return nil
}

// Pending returns the checkpoint of conversationID, or nil.
func (w *Workflow) Pending(ctx context.Context, conversationID string) (*model.PendingBooking, error) {
	return w.checkpoints.LoadPending(ctx, conversationID)
}

// ListPending returns every booking still waiting for an answer.
func (w *Workflow) ListPending(ctx context.Context) ([]*model.PendingBooking, error) {
	return w.checkpoints.ListPending(ctx)
}

// Resume applies the patient's answer: "yes" (any case, surrounding space
// ignored) confirms, anything else declines.
func (w *Workflow) Resume(ctx context.Context, conversationID, answer string) (*Result, error) {
	p, err := w.checkpoints.ClaimPending(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errx.NotFound("pending booking for conversation", conversationID)
	}

	if p.Expired(w.now()) {
		return w.decline(p, true), nil
	}
	if !strings.EqualFold(strings.TrimSpace(answer), confirmAnswer) {
		return w.decline(p, false), nil
	}

	// the appointment may have been cancelled or removed while it waited
	current, err := w.store.GetAppointment(ctx, p.AppointmentID)
	switch {
	case errors.Is(err, errx.ErrNotFound):
		return w.withdrawn(p, "deleted"), nil
	case err != nil:
		return nil, err
	case current.Status != model.StatusBooked:
		return w.withdrawn(p, strings.ToLower(string(current.Status))), nil
	}

	appt, err := w.store.UpdateAppointment(ctx, p.AppointmentID, model.AppointmentPatch{SendNotification: ptr(true)})
	if err != nil {
		return nil, err
	}
	metrics.BookingConfirmations.WithLabelValues("confirmed").Inc()
	logx.Info().Str("conversation_id", conversationID).Uint("appointment_id", appt.ID).Msg("booking confirmed")

	delivered := w.deliver(ctx, appt, p.DoctorName)
	return &Result{
		AppointmentID:         appt.ID,
		NotificationStatus:    true,
		NotificationDelivered: delivered,
		State:                 model.BookingConfirmed,
		Summary:               w.confirmedSummary(appt, p.DoctorName, delivered),
	}, nil
}

// SetNotification sets the notification flag of a Booked appointment owned by
// userID outside the suspend/resume flow. Enabling it sends the confirmation
// unless it was already delivered.
func (w *Workflow) SetNotification(ctx context.Context, userID, appointmentID uint, desired bool) (*Result, error) {
	appt, err := w.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.UserID != userID {
		return nil, errx.Unauthorized("change notifications of another patient's appointment", string(model.RoleUser))
	}
	if appt.Status != model.StatusBooked {
		return nil, errx.Validation("appointment %d is %s", appt.ID, appt.Status)
	}

	doctor, err := w.store.GetDoctor(ctx, appt.DoctorID)
	if err != nil {
		return nil, err
	}

	if !desired {
		if appt.SendNotification {
			if appt, err = w.store.UpdateAppointment(ctx, appt.ID, model.AppointmentPatch{SendNotification: ptr(false)}); err != nil {
				return nil, err
			}
		}
		return &Result{
			AppointmentID:         appt.ID,
			NotificationStatus:    false,
			NotificationDelivered: appt.NotificationDelivered,
			State:                 model.BookingDeclined,
			Summary:               fmt.Sprintf("Email notification is off for appointment %d.", appt.ID),
		}, nil
	}

	if appt.SendNotification && appt.NotificationDelivered {
		return &Result{
			AppointmentID:         appt.ID,
			NotificationStatus:    true,
			NotificationDelivered: true,
			State:                 model.BookingConfirmed,
			Summary:               fmt.Sprintf("The confirmation for appointment %d was already sent to %s.", appt.ID, appt.PatientEmail),
		}, nil
	}

	if !appt.SendNotification {
		if appt, err = w.store.UpdateAppointment(ctx, appt.ID, model.AppointmentPatch{SendNotification: ptr(true)}); err != nil {
			return nil, err
		}
	}
	delivered := w.deliver(ctx, appt, doctor.Name)
	return &Result{
		AppointmentID:         appt.ID,
		NotificationStatus:    true,
		NotificationDelivered: delivered,
		State:                 model.BookingConfirmed,
		Summary:               w.confirmedSummary(appt, doctor.Name, delivered),
	}, nil
}

// ExpirePending declines every checkpoint whose confirmation window closed
// at or before now and returns how many it resolved.
func (w *Workflow) ExpirePending(ctx context.Context, now time.Time) (int, error) {
	ids, err := w.checkpoints.ListExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range ids {
		p, err := w.checkpoints.ClaimPending(ctx, id)
		if err != nil {
			return n, err
		}
		if p == nil {
			// answered concurrently
			continue
		}
		w.decline(p, true)
		n++
	}
	return n, nil
}

// deliver makes one notification attempt and records its outcome. Errors
// are logged, never returned.
func (w *Workflow) deliver(ctx context.Context, appt *model.Appointment, doctorName string) bool {
	subject, body := notify.AppointmentConfirmation(doctorName, appt.ScheduledAt.In(w.loc))
	err := w.notifier.Notify(ctx, subject, body, appt.PatientEmail)
	delivered := err == nil
	if err != nil && !errors.Is(err, errx.ErrNotificationDelivery) {
		logx.Warn().Err(err).Uint("appointment_id", appt.ID).Msg("notification not attempted")
	}

	attempted := w.now()
	if _, uerr := w.store.UpdateAppointment(ctx, appt.ID, model.AppointmentPatch{
		NotificationDelivered:   &delivered,
		NotificationAttemptedAt: &attempted,
	}); uerr != nil {
		logx.Warn().Err(uerr).Uint("appointment_id", appt.ID).Msg("failed to record notification outcome")
	}
	return delivered
}

func (w *Workflow) decline(p *model.PendingBooking, expired bool) *Result {
	outcome := "declined"
	summary := fmt.Sprintf("Appointment %d with %s on %s is booked without an email notification.",
		p.AppointmentID, p.DoctorName, p.ScheduledAt.In(w.loc).Format(model.DateTimeLayout))
	if expired {
		outcome = "expired"
		summary = fmt.Sprintf("The confirmation window for appointment %d closed, so no email notification will be sent. %s",
			p.AppointmentID, "You can still turn it on later.")
	}
	metrics.BookingConfirmations.WithLabelValues(outcome).Inc()
	logx.Info().
		Str("conversation_id", p.ConversationID).
		Uint("appointment_id", p.AppointmentID).
		Str("outcome", outcome).
		Msg("booking resolved without notification")

	return &Result{
		AppointmentID:      p.AppointmentID,
		NotificationStatus: false,
		State:              model.BookingDeclined,
		Expired:            expired,
		Summary:            summary,
	}
}

// withdrawn resolves a checkpoint whose appointment is no longer Booked.
// Nothing is written and nobody is notified.
func (w *Workflow) withdrawn(p *model.PendingBooking, status string) *Result {
	metrics.BookingConfirmations.WithLabelValues("withdrawn").Inc()
	logx.Info().
		Str("conversation_id", p.ConversationID).
		Uint("appointment_id", p.AppointmentID).
		Str("appointment_status", status).
		Msg("booking resolved without notification, appointment no longer booked")

	return &Result{
		AppointmentID:      p.AppointmentID,
		NotificationStatus: false,
		State:              model.BookingDeclined,
		Summary: fmt.Sprintf("Appointment %d with %s was %s before it was confirmed, so no email notification was sent.",
			p.AppointmentID, p.DoctorName, status),
	}
}

func (w *Workflow) confirmedSummary(appt *model.Appointment, doctorName string, delivered bool) string {
	at := appt.ScheduledAt.In(w.loc)
	s := fmt.Sprintf("Appointment %d with %s on %s at %s is confirmed.",
		appt.ID, doctorName, at.Format(model.DateLayout), at.Format(model.TimeLayout))
	if delivered {
		return s + " A confirmation email was sent to " + appt.PatientEmail + "."
	}
	return s + " The confirmation email could not be sent right now."
}

func ptr[T any](v T) *T { return &v }
