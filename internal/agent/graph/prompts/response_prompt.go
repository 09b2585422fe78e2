package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/doctor-appointment-agent/server/internal/agent/access"
	"github.com/doctor-appointment-agent/server/internal/agent/clinic"
	"github.com/doctor-appointment-agent/server/internal/agent/model"
)

//go:embed template/system_prompt.txt
var coreSystemPrompt string

// RenderResponseSystem renders the system prompt for the caller's session and
// triggers prompt callbacks.
func RenderResponseSystem(ctx context.Context, config model.ResponsePromptConfig, sess *model.Session, now time.Time) (string, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(coreSystemPrompt),
	)
	vars := map[string]any{
		"ClinicName":       config.ClinicName,
		"Role":             string(access.RoleOf(sess)),
		"Username":         "",
		"Today":            now.Format("Monday " + model.DateLayout),
		"Timezone":         now.Location().String(),
		"NoDoctorsMessage": clinic.NoDoctorsMessage,
		"WhoAmITool":       clinic.CmdWhoAmI,
		"ListDoctorsTool":  clinic.CmdListDoctors,
		"AddDoctorTool":    clinic.CmdAddDoctor,
		"BookTool":         clinic.CmdBookAppointment,
	}
	if !sess.IsGuest() {
		vars["Username"] = sess.Username
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("response prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("response prompt render: empty result")
	}
	return msgs[0].Content, nil
}
