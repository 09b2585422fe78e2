package model

import (
	"context"
	"time"
)

// BookingState is a step of the booking workflow.
type BookingState string

const (
	BookingDraft               BookingState = "DRAFT"
	BookingPendingConfirmation BookingState = "PENDING_CONFIRMATION"
	BookingConfirmed           BookingState = "CONFIRMED"
	BookingDeclined            BookingState = "DECLINED"
	BookingTerminal            BookingState = "TERMINAL"
)

// PendingBooking is the checkpoint of a booking suspended for confirmation.
type PendingBooking struct {
	ConversationID string       `json:"conversation_id"`
	AppointmentID  uint         `json:"appointment_id"`
	UserID         uint         `json:"user_id"`
	DoctorID       uint         `json:"doctor_id"`
	DoctorName     string       `json:"doctor_name"`
	PatientEmail   string       `json:"patient_email"`
	ScheduledAt    time.Time    `json:"scheduled_at"`
	State          BookingState `json:"state"`
	CreatedAt      time.Time    `json:"created_at"`
	ExpiresAt      time.Time    `json:"expires_at"`
}

func (p *PendingBooking) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt)
}

// BookingCheckpointRepository persists suspended bookings keyed by conversation id.
type BookingCheckpointRepository interface {
	// SavePending fails with a conflict when the conversation already has one.
	SavePending(ctx context.Context, p *PendingBooking) error
	// LoadPending returns nil when nothing is pending.
	LoadPending(ctx context.Context, conversationID string) (*PendingBooking, error)
	// ClaimPending removes and returns the checkpoint. Only one concurrent
	// caller receives it; the others get nil.
	ClaimPending(ctx context.Context, conversationID string) (*PendingBooking, error)
	// ListExpired returns conversation ids whose checkpoint expired at or before now.
	ListExpired(ctx context.Context, now time.Time) ([]string, error)
	ListPending(ctx context.Context) ([]*PendingBooking, error)
}
