package clinic

import (
	"github.com/doctor-appointment-agent/server/internal/agent/access"
)

// Command names, shared by the assistant's tool catalogue and the HTTP
// command endpoint.
const (
	CmdSignUp                   = "sign_up"
	CmdSignIn                   = "sign_in"
	CmdSignOut                  = "sign_out"
	CmdWhoAmI                   = "who_am_i"
	CmdListUsers                = "list_users"
	CmdGetUser                  = "get_user"
	CmdDeleteUser               = "delete_user"
	CmdAddDoctor                = "add_doctor"
	CmdGetDoctor                = "get_doctor"
	CmdListDoctors              = "list_doctors"
	CmdUpdateDoctor             = "update_doctor"
	CmdDeleteDoctor             = "delete_doctor"
	CmdBookAppointment          = "book_appointment"
	CmdConfirmBooking           = "confirm_booking"
	CmdSetNotification          = "set_notification"
	CmdListMyAppointments       = "list_my_appointments"
	CmdGetAppointment           = "get_appointment"
	CmdListAppointments         = "list_appointments"
	CmdUpdateAppointmentStatus  = "update_appointment_status"
	CmdCancelAppointment        = "cancel_appointment"
	CmdDeleteAppointment        = "delete_appointment"
	CmdListPendingConfirmations = "list_pending_confirmations"
)

// Command is the closed set of operations the assistant can perform.
type Command interface {
	Name() string
	Action() access.Action
	command()
}

type SignUp struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
	Email    string `json:"email"`
}

type SignIn struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SignOut struct{}

type WhoAmI struct{}

type ListUsers struct{}

type GetUser struct {
	UserID uint `json:"user_id"`
}

type DeleteUser struct {
	UserID uint `json:"user_id"`
}

type AddDoctor struct {
	DoctorName string `json:"name"`
	Specialty  string `json:"specialty"`
	Available  *bool  `json:"available,omitempty"` // defaults to true
}

type GetDoctor struct {
	DoctorID uint `json:"doctor_id"`
}

type ListDoctors struct {
	AvailableOnly bool `json:"available_only,omitempty"`
}

type UpdateDoctor struct {
	DoctorID   uint    `json:"doctor_id"`
	DoctorName *string `json:"name,omitempty"`
	Specialty  *string `json:"specialty,omitempty"`
	Available  *bool   `json:"available,omitempty"`
}

type DeleteDoctor struct {
	DoctorID uint `json:"doctor_id"`
}

// BookAppointment books for the signed in patient; the patient email is
// never taken from the caller.
type BookAppointment struct {
	DoctorID uint   `json:"doctor_id"`
	Date     string `json:"date"`
	Time     string `json:"time"`
}

// ConfirmBooking answers the conversation's pending booking question.
// "yes" approves the notification, anything else declines it.
type ConfirmBooking struct {
	Answer string `json:"answer"`
}

type SetNotification struct {
	AppointmentID uint `json:"appointment_id"`
	Enabled       bool `json:"enabled"`
}

type ListMyAppointments struct {
	UnconfirmedOnly bool `json:"unconfirmed_only,omitempty"`
}

type GetAppointment struct {
	AppointmentID uint `json:"appointment_id"`
}

// ListAppointments is the admin view across all patients.
type ListAppointments struct {
	UserID   uint   `json:"user_id,omitempty"`
	DoctorID uint   `json:"doctor_id,omitempty"`
	Status   string `json:"status,omitempty"`
}

type UpdateAppointmentStatus struct {
	AppointmentID uint   `json:"appointment_id"`
	Status        string `json:"status"`
}

type CancelAppointment struct {
	AppointmentID uint `json:"appointment_id"`
}

type DeleteAppointment struct {
	AppointmentID uint `json:"appointment_id"`
}

type ListPendingConfirmations struct{}

func (SignUp) Name() string                   { return CmdSignUp }
func (SignIn) Name() string                   { return CmdSignIn }
func (SignOut) Name() string                  { return CmdSignOut }
func (WhoAmI) Name() string                   { return CmdWhoAmI }
func (ListUsers) Name() string                { return CmdListUsers }
func (GetUser) Name() string                  { return CmdGetUser }
func (DeleteUser) Name() string               { return CmdDeleteUser }
func (AddDoctor) Name() string                { return CmdAddDoctor }
func (GetDoctor) Name() string                { return CmdGetDoctor }
func (ListDoctors) Name() string              { return CmdListDoctors }
func (UpdateDoctor) Name() string             { return CmdUpdateDoctor }
func (DeleteDoctor) Name() string             { return CmdDeleteDoctor }
func (BookAppointment) Name() string          { return CmdBookAppointment }
func (ConfirmBooking) Name() string           { return CmdConfirmBooking }
func (SetNotification) Name() string          { return CmdSetNotification }
func (ListMyAppointments) Name() string       { return CmdListMyAppointments }
func (GetAppointment) Name() string           { return CmdGetAppointment }
func (ListAppointments) Name() string         { return CmdListAppointments }
func (UpdateAppointmentStatus) Name() string  { return CmdUpdateAppointmentStatus }
func (CancelAppointment) Name() string        { return CmdCancelAppointment }
func (DeleteAppointment) Name() string        { return CmdDeleteAppointment }
func (ListPendingConfirmations) Name() string { return CmdListPendingConfirmations }

func (SignUp) Action() access.Action                   { return access.ActionSignUp }
func (SignIn) Action() access.Action                   { return access.ActionSignIn }
func (SignOut) Action() access.Action                  { return access.ActionSignOut }
func (WhoAmI) Action() access.Action                   { return access.ActionWhoAmI }
func (ListUsers) Action() access.Action                { return access.ActionListUsers }
func (GetUser) Action() access.Action                  { return access.ActionListUsers }
func (DeleteUser) Action() access.Action               { return access.ActionDeleteUser }
func (AddDoctor) Action() access.Action                { return access.ActionAddDoctor }
func (GetDoctor) Action() access.Action                { return access.ActionViewDoctors }
func (ListDoctors) Action() access.Action              { return access.ActionViewDoctors }
func (UpdateDoctor) Action() access.Action             { return access.ActionUpdateDoctor }
func (DeleteDoctor) Action() access.Action             { return access.ActionDeleteDoctor }
func (BookAppointment) Action() access.Action          { return access.ActionBookAppointment }
func (ConfirmBooking) Action() access.Action           { return access.ActionBookAppointment }
func (SetNotification) Action() access.Action          { return access.ActionSetNotification }
func (ListMyAppointments) Action() access.Action       { return access.ActionViewOwnAppointments }
func (GetAppointment) Action() access.Action           { return access.ActionViewOwnAppointments }
func (ListAppointments) Action() access.Action         { return access.ActionViewAllAppointments }
func (UpdateAppointmentStatus) Action() access.Action  { return access.ActionUpdateAppointmentStatus }
func (CancelAppointment) Action() access.Action        { return access.ActionCancelOwnAppointment }
func (DeleteAppointment) Action() access.Action        { return access.ActionDeleteAppointment }
func (ListPendingConfirmations) Action() access.Action { return access.ActionViewPendingBookings }

func (SignUp) command()                   {}
func (SignIn) command()                   {}
func (SignOut) command()                  {}
func (WhoAmI) command()                   {}
func (ListUsers) command()                {}
func (GetUser) command()                  {}
func (DeleteUser) command()               {}
func (AddDoctor) command()                {}
func (GetDoctor) command()                {}
func (ListDoctors) command()              {}
func (UpdateDoctor) command()             {}
func (DeleteDoctor) command()             {}
func (BookAppointment) command()          {}
func (ConfirmBooking) command()           {}
func (SetNotification) command()          {}
func (ListMyAppointments) command()       {}
func (GetAppointment) command()           {}
func (ListAppointments) command()         {}
func (UpdateAppointmentStatus) command()  {}
func (CancelAppointment) command()        {}
func (DeleteAppointment) command()        {}
func (ListPendingConfirmations) command() {}
