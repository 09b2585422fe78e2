package clinic

import (
	"bytes"
	"encoding/json"
	"sort"

	errx "github.com/doctor-appointment-agent/server/internal/core/error"
)

var registry = map[string]func([]byte) (Command, error){
	CmdSignUp:                   decodeAs[SignUp],
	CmdSignIn:                   decodeAs[SignIn],
	CmdSignOut:                  decodeAs[SignOut],
	CmdWhoAmI:                   decodeAs[WhoAmI],
	CmdListUsers:                decodeAs[ListUsers],
	CmdGetUser:                  decodeAs[GetUser],
	CmdDeleteUser:               decodeAs[DeleteUser],
	CmdAddDoctor:                decodeAs[AddDoctor],
	CmdGetDoctor:                decodeAs[GetDoctor],
	CmdListDoctors:              decodeAs[ListDoctors],
	CmdUpdateDoctor:             decodeAs[UpdateDoctor],
	CmdDeleteDoctor:             decodeAs[DeleteDoctor],
	CmdBookAppointment:          decodeAs[BookAppointment],
	CmdConfirmBooking:           decodeAs[ConfirmBooking],
	CmdSetNotification:          decodeAs[SetNotification],
	CmdListMyAppointments:       decodeAs[ListMyAppointments],
	CmdGetAppointment:           decodeAs[GetAppointment],
	CmdListAppointments:         decodeAs[ListAppointments],
	CmdUpdateAppointmentStatus:  decodeAs[UpdateAppointmentStatus],
	CmdCancelAppointment:        decodeAs[CancelAppointment],
	CmdDeleteAppointment:        decodeAs[DeleteAppointment],
	CmdListPendingConfirmations: decodeAs[ListPendingConfirmations],
}

// Decode builds the named command from its JSON arguments. Empty arguments
// decode as {}.
func Decode(name string, raw []byte) (Command, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, errx.Validation("unknown command %q", name)
	}
	return fn(raw)
}

// Names lists every command, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func decodeAs[C Command](raw []byte) (Command, error) {
	var c C
	if len(bytes.TrimSpace(raw)) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, errx.Validation("invalid arguments for %s: %v", c.Name(), err)
	}
	return c, nil
}
