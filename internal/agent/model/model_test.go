package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/doctor-appointment-agent/server/internal/core/error"
)

func TestNewUserNormalize(t *testing.T) {
	username, role, email, err := NewUser{Username: "  Alice ", Password: "pw1", Role: "USER", Email: " a@x.com "}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
	assert.Equal(t, RoleUser, role)
	assert.Equal(t, "a@x.com", email)

	cases := map[string]NewUser{
		"missing username": {Password: "pw", Role: "user", Email: "a@x.com"},
		"missing password": {Username: "bob", Role: "user", Email: "a@x.com"},
		"bad role":         {Username: "bob", Password: "pw", Role: "doctor", Email: "a@x.com"},
		"guest role":       {Username: "bob", Password: "pw", Role: "guest", Email: "a@x.com"},
		"bad email":        {Username: "bob", Password: "pw", Role: "user", Email: "bob.example.com"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, _, err := in.Normalize()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errx.ErrValidation))
		})
	}
}

func TestParseAppointmentStatus(t *testing.T) {
	s, err := ParseAppointmentStatus("cancelled")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, s)

	_, err = ParseAppointmentStatus("Postponed")
	assert.ErrorIs(t, err, errx.ErrValidation)
}

func TestDoctorPatchOnlyTouchesSuppliedFields(t *testing.T) {
	d := Doctor{Name: "Dr. Ali", Specialty: "Cardiologist", Available: true}
	specialty := "Neurology"
	p := DoctorPatch{Specialty: &specialty}

	p.Apply(&d)
	assert.Equal(t, Doctor{Name: "Dr. Ali", Specialty: "Neurology", Available: true}, d)
	assert.Equal(t, map[string]any{"specialty": "Neurology"}, p.Columns())
	assert.False(t, p.Empty())
	assert.True(t, DoctorPatch{}.Empty())
}

func TestAppointmentFilterMatch(t *testing.T) {
	a := &Appointment{UserID: 1, DoctorID: 2, Status: StatusBooked}
	assert.True(t, AppointmentFilter{}.Match(a))
	assert.True(t, AppointmentFilter{UserID: 1, Unconfirmed: true}.Match(a))
	assert.False(t, AppointmentFilter{UserID: 3}.Match(a))
	assert.False(t, AppointmentFilter{Status: StatusCompleted}.Match(a))

	a.SendNotification = true
	assert.False(t, AppointmentFilter{Unconfirmed: true}.Match(a))
}

func TestAppointmentDateAndTime(t *testing.T) {
	a := Appointment{ScheduledAt: time.Date(2025, 1, 12, 15, 0, 0, 0, time.UTC)}
	assert.Equal(t, "2025-01-12", a.Date())
	assert.Equal(t, "15:00", a.Time())
}

func TestPendingBookingExpired(t *testing.T) {
	now := time.Now()
	p := &PendingBooking{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, p.Expired(now))
	assert.True(t, p.Expired(now.Add(time.Minute)))
	assert.False(t, (&PendingBooking{}).Expired(now))
}

func TestRecentTurns(t *testing.T) {
	h := &ConversationHistory{Messages: []*schema.Message{
		schema.UserMessage("one"),
		schema.AssistantMessage("a1", nil),
		schema.UserMessage("two"),
		schema.AssistantMessage("", []schema.ToolCall{{ID: "c1"}}),
		schema.ToolMessage("{}", "c1"),
		schema.AssistantMessage("a2", nil),
	}}
	got := h.RecentTurns(1)
	require.Len(t, got, 4)
	assert.Equal(t, "two", got[0].Content)
	assert.Len(t, h.RecentTurns(5), 6)
	assert.Len(t, h.RecentTurns(0), 6)
}

func TestCostOf(t *testing.T) {
	c := CostOf("gemini-2.5-flash", &schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 1_000_000})
	assert.InDelta(t, 2.80, c.Total(), 1e-9)
	assert.Zero(t, CostOf("unknown", &schema.TokenUsage{PromptTokens: 10}).Total())
	assert.Zero(t, CostOf("gemini-2.5-flash", nil).Total())
}

func TestConversationIDContext(t *testing.T) {
	ctx := WithConversationID(context.Background(), "c-1")
	assert.Equal(t, "c-1", ConversationIDFrom(ctx))
	assert.Empty(t, ConversationIDFrom(context.Background()))
}

func TestGuestSession(t *testing.T) {
	s := GuestSession("c-1")
	assert.True(t, s.IsGuest())
	assert.True(t, (*Session)(nil).IsGuest())
	assert.False(t, (&Session{UserID: 1, Role: RoleUser}).IsGuest())
}
