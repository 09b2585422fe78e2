package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/doctor-appointment-agent/server/internal/agent/booking"
	"github.com/doctor-appointment-agent/server/internal/agent/clinic"
	"github.com/doctor-appointment-agent/server/internal/agent/model"
	errx "github.com/doctor-appointment-agent/server/internal/core/error"
)

// Executor runs a command for the conversation's current session.
type Executor interface {
	ExecuteFor(ctx context.Context, conversationID string, cmd clinic.Command) (any, error)
}

// Outcome is the JSON a tool hands back to the model. Error is set to the
// failure kind when the clinic refused the command.
type Outcome struct {
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// newCommandTool exposes command C as a tool. Domain failures are returned
// to the model as an Outcome; infrastructure failures abort the turn.
func newCommandTool[C clinic.Command](exec Executor, desc string, params map[string]*schema.ParameterInfo) tool.InvokableTool {
	var zero C
	info := &schema.ToolInfo{Name: zero.Name(), Desc: desc}
	if len(params) > 0 {
		info.ParamsOneOf = schema.NewParamsOneOfByParams(params)
	}
	return utils.NewTool(info, func(ctx context.Context, cmd C) (*Outcome, error) {
		out, err := exec.ExecuteFor(ctx, model.ConversationIDFrom(ctx), cmd)
		if err != nil {
			kind := errx.KindOf(err)
			if kind == errx.KindInternal {
				return nil, err
			}
			return &Outcome{Error: string(kind), Message: errx.PublicMessage(err)}, nil
		}
		return &Outcome{Result: out}, nil
	})
}

// GetToolInfos collects the ToolInfo of every tool for binding to a chat model.
func GetToolInfos(ctx context.Context, tools []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// SuspensionFrom reports whether content is a book_appointment result that
// suspended the booking for confirmation.
func SuspensionFrom(content string) (*model.Suspension, bool) {
	var out struct {
		Result *booking.Suspension `json:"result"`
	}
	if err := json.Unmarshal([]byte(content), &out); err != nil || out.Result == nil {
		return nil, false
	}
	if out.Result.Status != booking.StatusPending || out.Result.AppointmentID == 0 {
		return nil, false
	}
	return &model.Suspension{AppointmentID: out.Result.AppointmentID, Prompt: out.Result.Prompt}, true
}
