package tools

import (
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/doctor-appointment-agent/server/internal/agent/clinic"
)

func str(desc string, required bool) *schema.ParameterInfo {
	return &schema.ParameterInfo{Type: schema.String, Desc: desc, Required: required}
}

func id(desc string) *schema.ParameterInfo {
	return &schema.ParameterInfo{Type: schema.Integer, Desc: desc, Required: true}
}

func flag(desc string, required bool) *schema.ParameterInfo {
	return &schema.ParameterInfo{Type: schema.Boolean, Desc: desc, Required: required}
}

// GetClinicTools returns every clinic command as a tool. Access is checked
// per call against the caller's session, so the whole catalogue is always bound.
func GetClinicTools(exec Executor) []tool.BaseTool {
	return []tool.BaseTool{
		newCommandTool[clinic.SignUp](exec,
			"Create an account. Does not sign in. Role is user unless the caller explicitly asks for admin.",
			map[string]*schema.ParameterInfo{
				"username": str("Unique username, case-insensitive", true),
				"password": str("Password chosen by the caller", true),
				"email":    str("Email address used for appointment notifications", true),
				"role":     {Type: schema.String, Desc: "Account role", Enum: []string{"user", "admin"}},
			}),
		newCommandTool[clinic.SignIn](exec,
			"Sign in to this conversation with username and password.",
			map[string]*schema.ParameterInfo{
				"username": str("Username", true),
				"password": str("Password", true),
			}),
		newCommandTool[clinic.SignOut](exec, "Sign the caller out of this conversation.", nil),
		newCommandTool[clinic.WhoAmI](exec, "Return the caller's role, username and email. Guests have no username.", nil),

		newCommandTool[clinic.ListUsers](exec, "Admin only. List all user accounts.", nil),
		newCommandTool[clinic.GetUser](exec, "Admin only. Get one user account.",
			map[string]*schema.ParameterInfo{"user_id": id("User id")}),
		newCommandTool[clinic.DeleteUser](exec, "Admin only. Delete a user account and its appointments.",
			map[string]*schema.ParameterInfo{"user_id": id("User id")}),

		newCommandTool[clinic.AddDoctor](exec, "Admin only. Add a doctor.",
			map[string]*schema.ParameterInfo{
				"name":      str("Doctor's full name, e.g. Dr. Ahmed Ali", true),
				"specialty": str("Specialty, e.g. Cardiologist", true),
				"available": flag("Whether the doctor takes bookings (default true)", false),
			}),
		newCommandTool[clinic.GetDoctor](exec, "Get one doctor by id.",
			map[string]*schema.ParameterInfo{"doctor_id": id("Doctor id")}),
		newCommandTool[clinic.ListDoctors](exec, "List doctors with their ids, specialties and availability.",
			map[string]*schema.ParameterInfo{"available_only": flag("Only doctors taking bookings", false)}),
		newCommandTool[clinic.UpdateDoctor](exec, "Admin only. Update a doctor. Only the fields supplied change.",
			map[string]*schema.ParameterInfo{
				"doctor_id": id("Doctor id"),
				"name":      str("New name", false),
				"specialty": str("New specialty", false),
				"available": flag("New availability", false),
			}),
		newCommandTool[clinic.DeleteDoctor](exec, "Admin only. Delete a doctor that has no appointments.",
			map[string]*schema.ParameterInfo{"doctor_id": id("Doctor id")}),

		newCommandTool[clinic.BookAppointment](exec,
			"Patients only. Book an appointment for the signed in patient. The booking then waits for the patient to answer whether to send an email notification.",
			map[string]*schema.ParameterInfo{
				"doctor_id": id("Doctor id from list_doctors"),
				"date":      str("Date as YYYY-MM-DD", true),
				"time":      str("Time as HH:MM, 24h", true),
			}),
		newCommandTool[clinic.ConfirmBooking](exec, "Patients only. Answer the pending booking question of this conversation. \"yes\" sends the email notification, anything else books without one.",
			map[string]*schema.ParameterInfo{"answer": str("The patient's answer, e.g. yes or no", true)}),
		newCommandTool[clinic.SetNotification](exec, "Patients only. Turn the email notification of an own appointment on or off. Turning it on sends the confirmation email.",
			map[string]*schema.ParameterInfo{
				"appointment_id": id("Appointment id"),
				"enabled":        flag("Whether to send the notification", true),
			}),
		newCommandTool[clinic.ListMyAppointments](exec, "Patients only. List the caller's own appointments.",
			map[string]*schema.ParameterInfo{"unconfirmed_only": flag("Only booked appointments whose notification was never approved", false)}),
		newCommandTool[clinic.GetAppointment](exec, "Patients only. Get one of the caller's own appointments.",
			map[string]*schema.ParameterInfo{"appointment_id": id("Appointment id")}),
		newCommandTool[clinic.CancelAppointment](exec, "Patients only. Cancel one of the caller's own booked appointments.",
			map[string]*schema.ParameterInfo{"appointment_id": id("Appointment id")}),

		newCommandTool[clinic.ListAppointments](exec, "Admin only. List appointments of all patients, optionally filtered.",
			map[string]*schema.ParameterInfo{
				"user_id":   {Type: schema.Integer, Desc: "Only this patient"},
				"doctor_id": {Type: schema.Integer, Desc: "Only this doctor"},
				"status":    {Type: schema.String, Desc: "Only this status", Enum: []string{"Booked", "Completed", "Cancelled"}},
			}),
		newCommandTool[clinic.UpdateAppointmentStatus](exec, "Admin only. Change the status of an appointment.",
			map[string]*schema.ParameterInfo{
				"appointment_id": id("Appointment id"),
				"status":         {Type: schema.String, Desc: "New status", Enum: []string{"Booked", "Completed", "Cancelled"}, Required: true},
			}),
		newCommandTool[clinic.DeleteAppointment](exec, "Admin only. Delete an appointment.",
			map[string]*schema.ParameterInfo{"appointment_id": id("Appointment id")}),
		newCommandTool[clinic.ListPendingConfirmations](exec, "Admin only. List bookings still waiting for the patient's notification answer.", nil),
	}
}
