package tools

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"

	"github.com/cloudwego/eino/components/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doctor-appointment-agent/server/internal/agent/booking"
	"github.com/doctor-appointment-agent/server/internal/agent/clinic"
	"github.com/doctor-appointment-agent/server/internal/agent/model"
	errx "github.com/doctor-appointment-agent/server/internal/core/error"
)

type fakeExecutor struct {
	conversationID string
	got            clinic.Command
	out            any
	err            error
}

func (f *fakeExecutor) ExecuteFor(_ context.Context, conversationID string, cmd clinic.Command) (any, error) {
	f.conversationID = conversationID
	f.got = cmd
	return f.out, f.err
}

func findTool(t *testing.T, all []tool.BaseTool, name string) tool.InvokableTool {
	t.Helper()
	for _, tl := range all {
		info, err := tl.Info(context.Background())
		require.NoError(t, err)
		if info.Name == name {
			inv, ok := tl.(tool.InvokableTool)
			require.True(t, ok)
			return inv
		}
	}
	t.Fatalf("tool %s not found", name)
	return nil
}

func TestCatalogueCoversEveryCommand(t *testing.T) {
	infos, err := GetToolInfos(context.Background(), GetClinicTools(&fakeExecutor{}))
	require.NoError(t, err)

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
		assert.NotEmpty(t, info.Desc, info.Name)
	}
	sort.Strings(names)
	assert.Equal(t, clinic.Names(), names)
}

func TestCommandToolDecodesAndRuns(t *testing.T) {
	exec := &fakeExecutor{out: clinic.Message{Message: "doctor 4 deleted"}}
	delTool := findTool(t, GetClinicTools(exec), clinic.CmdDeleteDoctor)

	ctx := model.WithConversationID(context.Background(), "c1")
	raw, err := delTool.InvokableRun(ctx, `{"doctor_id":4}`)
	require.NoError(t, err)

	assert.Equal(t, "c1", exec.conversationID)
	assert.Equal(t, clinic.DeleteDoctor{DoctorID: 4}, exec.got)
	assert.JSONEq(t, `{"result":{"message":"doctor 4 deleted"}}`, raw)
}

func TestCommandToolReportsDomainErrors(t *testing.T) {
	exec := &fakeExecutor{err: errx.Unauthorized("delete doctors", "user")}
	delTool := findTool(t, GetClinicTools(exec), clinic.CmdDeleteDoctor)

	raw, err := delTool.InvokableRun(context.Background(), `{"doctor_id":4}`)
	require.NoError(t, err)

	var out Outcome
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	assert.Equal(t, string(errx.KindAuthorization), out.Error)
	assert.Contains(t, out.Message, "delete doctors")
	assert.Nil(t, out.Result)
}

func TestCommandToolPropagatesInfrastructureErrors(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("connection refused")}
	listTool := findTool(t, GetClinicTools(exec), clinic.CmdListDoctors)

	_, err := listTool.InvokableRun(context.Background(), `{}`)
	assert.Error(t, err)
}

func TestSuspensionFrom(t *testing.T) {
	raw, err := json.Marshal(Outcome{Result: &booking.Suspension{
		AppointmentID: 9,
		Status:        booking.StatusPending,
		Prompt:        booking.ConfirmationPrompt,
	}})
	require.NoError(t, err)

	s, ok := SuspensionFrom(string(raw))
	require.True(t, ok)
	assert.Equal(t, uint(9), s.AppointmentID)
	assert.Equal(t, booking.ConfirmationPrompt, s.Prompt)

	_, ok = SuspensionFrom(`{"error":"validation","message":"bad date"}`)
	assert.False(t, ok)
	_, ok = SuspensionFrom(`{"result":{"doctors":[]}}`)
	assert.False(t, ok)
	_, ok = SuspensionFrom(`not json`)
	assert.False(t, ok)
}
