package access

import (
	"github.com/doctor-appointment-agent/server/internal/agent/model"
	errx "github.com/doctor-appointment-agent/server/internal/core/error"
)

// Action is a gated capability. Its value reads as a verb phrase in
// authorization messages.
type Action string

const (
	ActionViewDoctors             Action = "view doctors"
	ActionSignUp                  Action = "sign up"
	ActionSignIn                  Action = "sign in"
	ActionSignOut                 Action = "sign out"
	ActionWhoAmI                  Action = "check the signed in account"
	ActionBookAppointment         Action = "book appointments"
	ActionViewOwnAppointments     Action = "view own appointments"
	ActionCancelOwnAppointment    Action = "cancel own appointments"
	ActionSetNotification         Action = "change appointment notifications"
	ActionAddDoctor               Action = "add doctors"
	ActionUpdateDoctor            Action = "update doctors"
	ActionDeleteDoctor            Action = "delete doctors"
	ActionListUsers               Action = "list users"
	ActionDeleteUser              Action = "delete users"
	ActionUpdateAppointmentStatus Action = "update appointment status"
	ActionDeleteAppointment       Action = "delete appointments"
	ActionViewPendingBookings     Action = "view bookings waiting for confirmation"
	ActionViewAllAppointments     Action = "view all appointments"
)

var (
	everyone   = []model.Role{model.RoleGuest, model.RoleUser, model.RoleAdmin}
	guestOnly  = []model.Role{model.RoleGuest}
	signedIn   = []model.Role{model.RoleUser, model.RoleAdmin}
	patientsOf = []model.Role{model.RoleUser}
	adminOnly  = []model.Role{model.RoleAdmin}
)

// defaultMatrix lists, per action, the roles allowed to perform it.
// Anything absent is denied.
var defaultMatrix = map[Action][]model.Role{
	ActionViewDoctors:             everyone,
	ActionWhoAmI:                  everyone,
	ActionSignUp:                  guestOnly,
	ActionSignIn:                  guestOnly,
	ActionSignOut:                 signedIn,
	ActionBookAppointment:         patientsOf,
	ActionViewOwnAppointments:     patientsOf,
	ActionCancelOwnAppointment:    patientsOf,
	ActionSetNotification:         patientsOf,
	ActionAddDoctor:               adminOnly,
	ActionUpdateDoctor:            adminOnly,
	ActionDeleteDoctor:            adminOnly,
	ActionListUsers:               adminOnly,
	ActionDeleteUser:              adminOnly,
	ActionUpdateAppointmentStatus: adminOnly,
	ActionDeleteAppointment:       adminOnly,
	ActionViewPendingBookings:     adminOnly,
	ActionViewAllAppointments:     adminOnly,
}

// Gate maps (role, action) to allow or deny.
type Gate struct {
	allowed map[Action]map[model.Role]bool
}

func NewGate() *Gate {
	g := &Gate{allowed: make(map[Action]map[model.Role]bool, len(defaultMatrix))}
	for action, roles := range defaultMatrix {
		set := make(map[model.Role]bool, len(roles))
		for _, r := range roles {
			set[r] = true
		}
		g.allowed[action] = set
	}
	return g
}

// Actions returns every action the gate knows about.
func (g *Gate) Actions() []Action {
	out := make([]Action, 0, len(g.allowed))
	for a := range g.allowed {
		out = append(out, a)
	}
	return out
}

func (g *Gate) Allowed(role model.Role, action Action) bool {
	return g.allowed[action][role]
}

// Authorize returns an authorization error carrying guidance for the caller
// when the session's role lacks action.
func (g *Gate) Authorize(s *model.Session, action Action) error {
	role := RoleOf(s)
	if g.Allowed(role, action) {
		return nil
	}
	ae := errx.Unauthorized(string(action), string(role))
	switch {
	case role == model.RoleGuest:
		ae.Message += "; please sign in or sign up first"
	case action == ActionSignIn || action == ActionSignUp:
		ae.Message += "; you are already signed in, sign out first"
	}
	return ae
}

// RoleOf resolves the effective role; a missing session is a guest.
func RoleOf(s *model.Session) model.Role {
	if s.IsGuest() {
		return model.RoleGuest
	}
	return s.Role
}
