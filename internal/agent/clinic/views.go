package clinic

import (
	"time"

	"github.com/doctor-appointment-agent/server/internal/agent/model"
)

const NoDoctorsMessage = "Currently we don't have any doctor available"

type Message struct {
	Message string `json:"message"`
}

type UserView struct {
	ID       uint       `json:"id"`
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Role     model.Role `json:"role"`
}

type SessionView struct {
	Role     model.Role `json:"role"`
	Username string     `json:"username,omitempty"`
	Email    string     `json:"email,omitempty"`
	Message  string     `json:"message,omitempty"`
}

type SignedIn struct {
	User    UserView `json:"user"`
	Message string   `json:"message"`
}

type DoctorList struct {
	Doctors []model.Doctor `json:"doctors"`
	Message string         `json:"message,omitempty"`
}

type AppointmentView struct {
	ID                    uint                    `json:"id"`
	DoctorID              uint                    `json:"doctor_id"`
	UserID                uint                    `json:"user_id"`
	PatientName           string                  `json:"patient_name"`
	PatientEmail          string                  `json:"patient_email"`
	Date                  string                  `json:"date"`
	Time                  string                  `json:"time"`
	Status                model.AppointmentStatus `json:"status"`
	SendNotification      bool                    `json:"send_notification"`
	NotificationDelivered bool                    `json:"notification_delivered"`
}

type AppointmentList struct {
	Appointments []AppointmentView `json:"appointments"`
	Message      string            `json:"message,omitempty"`
}

type PendingView struct {
	ConversationID string    `json:"conversation_id"`
	AppointmentID  uint      `json:"appointment_id"`
	Doctor         string    `json:"doctor"`
	PatientEmail   string    `json:"patient_email"`
	Date           string    `json:"date"`
	Time           string    `json:"time"`
	ExpiresAt      time.Time `json:"expires_at"`
}

func userView(u *model.User) UserView {
	return UserView{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

func appointmentView(a *model.Appointment, loc *time.Location) AppointmentView {
	at := a.ScheduledAt.In(loc)
	return AppointmentView{
		ID:                    a.ID,
		DoctorID:              a.DoctorID,
		UserID:                a.UserID,
		PatientName:           a.PatientName,
		PatientEmail:          a.PatientEmail,
		Date:                  at.Format(model.DateLayout),
		Time:                  at.Format(model.TimeLayout),
		Status:                a.Status,
		SendNotification:      a.SendNotification,
		NotificationDelivered: a.NotificationDelivered,
	}
}

func appointmentList(in []model.Appointment, loc *time.Location, empty string) AppointmentList {
	out := AppointmentList{Appointments: make([]AppointmentView, 0, len(in))}
	for i := range in {
		out.Appointments = append(out.Appointments, appointmentView(&in[i], loc))
	}
	if len(out.Appointments) == 0 {
		out.Message = empty
	}
	return out
}
