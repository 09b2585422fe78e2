// Package clinic executes the assistant's typed commands against the record
// store, the session registry and the booking workflow. Every command is
// authorized by the role gate before anything is read or written.
package clinic

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/doctor-appointment-agent/server/internal/agent/access"
	"github.com/doctor-appointment-agent/server/internal/agent/booking"
	"github.com/doctor-appointment-agent/server/internal/agent/model"
	errx "github.com/doctor-appointment-agent/server/internal/core/error"
	logx "github.com/doctor-appointment-agent/server/pkg/logger"
	"github.com/doctor-appointment-agent/server/pkg/metrics"
)

type Sessions interface {
	Current(ctx context.Context, conversationID string) (*model.Session, error)
	Start(ctx context.Context, conversationID string, u *model.User) (*model.Session, error)
	End(ctx context.Context, conversationID string) error
}

// Bookings is the part of the booking workflow reachable from commands.
type Bookings interface {
	Book(ctx context.Context, req booking.Request) (*booking.Suspension, error)
	Resume(ctx context.Context, conversationID, answer string) (*booking.Result, error)
	SetNotification(ctx context.Context, userID, appointmentID uint, desired bool) (*booking.Result, error)
	ListPending(ctx context.Context) ([]*model.PendingBooking, error)
	Location() *time.Location
}

type Dispatcher struct {
	gate     *access.Gate
	sessions Sessions
	store    model.Store
	bookings Bookings
}

func NewDispatcher(gate *access.Gate, sessions Sessions, store model.Store, bookings Bookings) *Dispatcher {
	return &Dispatcher{gate: gate, sessions: sessions, store: store, bookings: bookings}
}

// ExecuteFor resolves the conversation's session and executes cmd under it.
func (d *Dispatcher) ExecuteFor(ctx context.Context, conversationID string, cmd Command) (any, error) {
	sess, err := d.sessions.Current(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return d.Execute(ctx, sess, cmd)
}

// Execute authorizes cmd for sess and runs it. Domain failures come back as
// *errx.AppError values; anything else is an infrastructure error.
func (d *Dispatcher) Execute(ctx context.Context, sess *model.Session, cmd Command) (any, error) {
	if sess == nil {
		sess = model.GuestSession(model.ConversationIDFrom(ctx))
	}
	out, err := d.execute(ctx, sess, cmd)

	result := "ok"
	if err != nil {
		result = string(errx.KindOf(err))
	}
	metrics.ToolInvocations.WithLabelValues(cmd.Name(), result).Inc()

	ev := logx.Debug()
	if err != nil && errx.KindOf(err) == errx.KindInternal {
		ev = logx.Error().Err(err)
	}
	ev.Str("conversation_id", sess.ConversationID).
		Str("command", cmd.Name()).
		Str("role", string(access.RoleOf(sess))).
		Str("result", result).
		Msg("command executed")
	return out, err
}

func (d *Dispatcher) execute(ctx context.Context, sess *model.Session, cmd Command) (any, error) {
	if err := d.gate.Authorize(sess, cmd.Action()); err != nil {
		return nil, err
	}

	switch c := cmd.(type) {
	case SignUp:
		return d.signUp(ctx, c)
	case SignIn:
		return d.signIn(ctx, sess, c)
	case SignOut:
		if err := d.sessions.End(ctx, sess.ConversationID); err != nil {
			return nil, err
		}
		return Message{Message: fmt.Sprintf("Goodbye %s, you are signed out.", sess.Username)}, nil
	case WhoAmI:
		if sess.IsGuest() {
			return SessionView{Role: model.RoleGuest, Message: "You are not signed in. Sign in or sign up to book appointments."}, nil
		}
		return SessionView{Role: sess.Role, Username: sess.Username, Email: sess.Email}, nil

	case ListUsers:
		users, err := d.store.ListUsers(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]UserView, 0, len(users))
		for i := range users {
			out = append(out, userView(&users[i]))
		}
		return out, nil
	case GetUser:
		u, err := d.store.GetUser(ctx, c.UserID)
		if err != nil {
			return nil, err
		}
		return userView(u), nil
	case DeleteUser:
		if c.UserID == sess.UserID {
			return nil, errx.Validation("you cannot delete your own account while signed in")
		}
		return deleted(d.store.DeleteUser(ctx, c.UserID))("user", c.UserID)

	case AddDoctor:
		available := true
		if c.Available != nil {
			available = *c.Available
		}
		return d.store.CreateDoctor(ctx, model.NewDoctor{Name: c.DoctorName, Specialty: c.Specialty, Available: available})
	case GetDoctor:
		return d.store.GetDoctor(ctx, c.DoctorID)
	case ListDoctors:
		return d.listDoctors(ctx, c)
	case UpdateDoctor:
		patch := model.DoctorPatch{Name: c.DoctorName, Specialty: c.Specialty, Available: c.Available}
		if patch.Empty() {
			return nil, errx.Validation("nothing to update for doctor %d", c.DoctorID)
		}
		return d.store.UpdateDoctor(ctx, c.DoctorID, patch)
	case DeleteDoctor:
		return deleted(d.store.DeleteDoctor(ctx, c.DoctorID))("doctor", c.DoctorID)

	case BookAppointment:
		return d.bookings.Book(ctx, booking.Request{
			ConversationID: sess.ConversationID,
			UserID:         sess.UserID,
			DoctorID:       c.DoctorID,
			Date:           c.Date,
			Time:           c.Time,
		})
	case ConfirmBooking:
		if strings.TrimSpace(c.Answer) == "" {
			return nil, errx.Validation("answer is required")
		}
		return d.bookings.Resume(ctx, sess.ConversationID, c.Answer)
	case SetNotification:
		return d.bookings.SetNotification(ctx, sess.UserID, c.AppointmentID, c.Enabled)
	case ListMyAppointments:
		appts, err := d.store.ListAppointments(ctx, model.AppointmentFilter{UserID: sess.UserID, Unconfirmed: c.UnconfirmedOnly})
		if err != nil {
			return nil, err
		}
		return appointmentList(appts, d.bookings.Location(), "You have no appointments."), nil
	case GetAppointment:
		appt, err := d.ownAppointment(ctx, sess, c.AppointmentID)
		if err != nil {
			return nil, err
		}
		return appointmentView(appt, d.bookings.Location()), nil
	case CancelAppointment:
		appt, err := d.ownAppointment(ctx, sess, c.AppointmentID)
		if err != nil {
			return nil, err
		}
		if appt.Status != model.StatusBooked {
			return nil, errx.Validation("appointment %d is already %s", appt.ID, appt.Status)
		}
		return d.setStatus(ctx, appt.ID, model.StatusCancelled)

	case ListAppointments:
		filter := model.AppointmentFilter{UserID: c.UserID, DoctorID: c.DoctorID}
		if strings.TrimSpace(c.Status) != "" {
			st, err := model.ParseAppointmentStatus(c.Status)
			if err != nil {
				return nil, err
			}
			filter.Status = st
		}
		appts, err := d.store.ListAppointments(ctx, filter)
		if err != nil {
			return nil, err
		}
		return appointmentList(appts, d.bookings.Location(), "No appointments match."), nil
	case UpdateAppointmentStatus:
		st, err := model.ParseAppointmentStatus(c.Status)
		if err != nil {
			return nil, err
		}
		return d.setStatus(ctx, c.AppointmentID, st)
	case DeleteAppointment:
		return deleted(d.store.DeleteAppointment(ctx, c.AppointmentID))("appointment", c.AppointmentID)
	case ListPendingConfirmations:
		return d.listPending(ctx)
	}
	return nil, errx.Validation("unsupported command %q", cmd.Name())
}

func (d *Dispatcher) signUp(ctx context.Context, c SignUp) (any, error) {
	role := c.Role
	if strings.TrimSpace(role) == "" {
		role = string(model.RoleUser)
	}
	u, err := d.store.CreateUser(ctx, model.NewUser{Username: c.Username, Password: c.Password, Role: role, Email: c.Email})
	if err != nil {
		return nil, err
	}
	return SignedIn{User: userView(u), Message: "Account created. Sign in to continue."}, nil
}

func (d *Dispatcher) signIn(ctx context.Context, sess *model.Session, c SignIn) (any, error) {
	u, ok, err := d.store.Authenticate(ctx, c.Username, c.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errx.New(nil, http.StatusUnauthorized, "invalid username or password")
	}
	if _, err := d.sessions.Start(ctx, sess.ConversationID, u); err != nil {
		return nil, err
	}
	return SignedIn{User: userView(u), Message: fmt.Sprintf("Welcome %s, you are signed in as %s.", u.Username, u.Role)}, nil
}

func (d *Dispatcher) listDoctors(ctx context.Context, c ListDoctors) (any, error) {
	all, err := d.store.ListDoctors(ctx)
	if err != nil {
		return nil, err
	}
	out := DoctorList{Doctors: make([]model.Doctor, 0, len(all))}
	for _, doc := range all {
		if c.AvailableOnly && !doc.Available {
			continue
		}
		out.Doctors = append(out.Doctors, doc)
	}
	if len(out.Doctors) == 0 {
		out.Message = NoDoctorsMessage
	}
	return out, nil
}

func (d *Dispatcher) ownAppointment(ctx context.Context, sess *model.Session, id uint) (*model.Appointment, error) {
	appt, err := d.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.UserID != sess.UserID {
		// not distinguishable from a missing row to other patients
		return nil, errx.NotFound("appointment", id)
	}
	return appt, nil
}

func (d *Dispatcher) setStatus(ctx context.Context, id uint, st model.AppointmentStatus) (any, error) {
	appt, err := d.store.UpdateAppointment(ctx, id, model.AppointmentPatch{Status: &st})
	if err != nil {
		return nil, err
	}
	return appointmentView(appt, d.bookings.Location()), nil
}

func (d *Dispatcher) listPending(ctx context.Context) (any, error) {
	pending, err := d.bookings.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	loc := d.bookings.Location()
	out := make([]PendingView, 0, len(pending))
	for _, p := range pending {
		at := p.ScheduledAt.In(loc)
		out = append(out, PendingView{
			ConversationID: p.ConversationID,
			AppointmentID:  p.AppointmentID,
			Doctor:         p.DoctorName,
			PatientEmail:   p.PatientEmail,
			Date:           at.Format(model.DateLayout),
			Time:           at.Format(model.TimeLayout),
			ExpiresAt:      p.ExpiresAt,
		})
	}
	return out, nil
}

// deleted turns a repository (found, err) pair into a command result.
func deleted(ok bool, err error) func(entity string, id uint) (any, error) {
	return func(entity string, id uint) (any, error) {
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errx.NotFound(entity, id)
		}
		return Message{Message: fmt.Sprintf("%s %d deleted", entity, id)}, nil
	}
}
