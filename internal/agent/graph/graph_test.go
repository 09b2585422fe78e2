package graph

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doctor-appointment-agent/server/internal/agent/access"
	"github.com/doctor-appointment-agent/server/internal/agent/booking"
	"github.com/doctor-appointment-agent/server/internal/agent/clinic"
	"github.com/doctor-appointment-agent/server/internal/agent/graph/conversations"
	"github.com/doctor-appointment-agent/server/internal/agent/graph/nodes"
	"github.com/doctor-appointment-agent/server/internal/agent/graph/tools"
	"github.com/doctor-appointment-agent/server/internal/agent/model"
	"github.com/doctor-appointment-agent/server/internal/agent/notify"
	"github.com/doctor-appointment-agent/server/internal/agent/repo"
)

// scriptedModel answers with queued messages and records what it was sent.
type scriptedModel struct {
	mu      sync.Mutex
	replies []*schema.Message
	inputs  [][]*schema.Message
	tools   []*schema.ToolInfo
}

func (m *scriptedModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, append([]*schema.Message(nil), input...))
	if len(m.replies) == 0 {
		return nil, fmt.Errorf("no scripted reply left")
	}
	out := m.replies[0]
	m.replies = m.replies[1:]
	return out, nil
}

func (m *scriptedModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	out, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{out}), nil
}

func (m *scriptedModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	m.tools = tools
	return m, nil
}

func (m *scriptedModel) script(msgs ...*schema.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, msgs...)
}

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

func (m *scriptedModel) lastInput() []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inputs[len(m.inputs)-1]
}

type outbox struct {
	mu   sync.Mutex
	sent []notify.EmailMessage
}

func (o *outbox) Send(_ context.Context, msg notify.EmailMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) messages() []notify.EmailMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]notify.EmailMessage(nil), o.sent...)
}

type env struct {
	runner   Runner
	llm      *scriptedModel
	mail     *outbox
	store    *repo.MemoryStore
	sessions *access.Sessions
	doctor   *model.Doctor
	alice    *model.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	store := repo.NewMemoryStore()
	doctor, err := store.CreateDoctor(ctx, model.NewDoctor{Name: "Dr. Ali", Specialty: "Cardiologist", Available: true})
	require.NoError(t, err)
	alice, err := store.CreateUser(ctx, model.NewUser{Username: "alice", Password: "pw1", Role: "user", Email: "a@x.com"})
	require.NoError(t, err)

	sessions := access.NewSessions(repo.NewRedisSessionRepository(rdb), store, access.NewTokenIssuer("test-secret", time.Hour))
	mail := &outbox{}
	wf := booking.NewWorkflow(store, repo.NewRedisCheckpointRepository(rdb), notify.NewNotifier(mail), booking.Config{ConfirmationTTL: time.Hour})
	dispatcher := clinic.NewDispatcher(access.NewGate(), sessions, store, wf)

	llm := &scriptedModel{}
	conv := model.ConversationConfig{MaxTurns: 10}
	runner, err := NewRunner(ctx, &GraphConfig{
		ChatModels:           &nodes.ChatModels{Response: llm, ResponseModelName: "gemini-2.5-flash"},
		MessagesManager:      conversations.NewMessagesManager(repo.NewRedisConversationRepository(rdb, time.Hour, 200), conv),
		ResponsePromptConfig: &model.ResponsePromptConfig{ClinicName: "City Clinic"},
		ToolMaxCalls:         3,
		Tools:                tools.GetClinicTools(dispatcher),
		Sessions:             sessions,
		Bookings:             wf,
	})
	require.NoError(t, err)
	require.Len(t, llm.tools, len(clinic.Names()))

	return &env{runner: runner, llm: llm, mail: mail, store: store, sessions: sessions, doctor: doctor, alice: alice}
}

func toolCall(id, name, args string) *schema.Message {
	return schema.AssistantMessage("", []schema.ToolCall{{
		ID:       id,
		Function: schema.FunctionCall{Name: name, Arguments: args},
	}})
}

func (e *env) say(t *testing.T, conversationID, text string) *model.Reply {
	t.Helper()
	reply, err := e.runner.Invoke(context.Background(), model.QueryInput{ConversationID: conversationID, Query: text})
	require.NoError(t, err)
	return reply
}

func TestPlainReply(t *testing.T) {
	e := newEnv(t)
	e.llm.script(schema.AssistantMessage("Hello, how can I help?", nil))

	reply := e.say(t, "c1", "hi")
	assert.Equal(t, "c1", reply.ConversationID)
	assert.Equal(t, "Hello, how can I help?", reply.Reply)
	assert.False(t, reply.PendingConfirmation)

	in := e.llm.lastInput()
	require.NotEmpty(t, in)
	assert.Equal(t, schema.System, in[0].Role)
	assert.Contains(t, in[0].Content, "- Role: guest")
	assert.Equal(t, "hi", in[len(in)-1].Content)
}

func TestBookingSuspendsAndResumes(t *testing.T) {
	e := newEnv(t)
	_, err := e.sessions.Start(context.Background(), "c1", e.alice)
	require.NoError(t, err)

	args := fmt.Sprintf(`{"doctor_id":"%d","date":"2025-01-12","time":"15:00"}`, e.doctor.ID)
	e.llm.script(toolCall("call_1", clinic.CmdBookAppointment, args))

	reply := e.say(t, "c1", "Book me with Dr. Ali on 2025-01-12 at 15:00")
	assert.Equal(t, booking.ConfirmationPrompt, reply.Reply)
	assert.True(t, reply.PendingConfirmation)
	assert.Equal(t, 1, e.llm.calls(), "the turn ends at the suspension")
	assert.Empty(t, e.mail.messages())

	appts, err := e.store.ListAppointments(context.Background(), model.AppointmentFilter{UserID: e.alice.ID})
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.False(t, appts[0].SendNotification)

	reply = e.say(t, "c1", "yes")
	assert.Contains(t, reply.Reply, "is confirmed")
	assert.False(t, reply.PendingConfirmation)
	assert.Equal(t, 1, e.llm.calls(), "the answer is handled without the model")

	sent := e.mail.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "a@x.com", sent[0].To)
	assert.Equal(t, "Your appointment with Dr. Ali on 2025-01-12 at 15:00 is confirmed.", sent[0].Body)

	appt, err := e.store.GetAppointment(context.Background(), appts[0].ID)
	require.NoError(t, err)
	assert.True(t, appt.SendNotification)

	// the next turn goes back to the model
	e.llm.script(schema.AssistantMessage("Anything else?", nil))
	reply = e.say(t, "c1", "thanks")
	assert.Equal(t, "Anything else?", reply.Reply)
	assert.Len(t, e.mail.messages(), 1)
}

func TestDeclinedConfirmationSendsNothing(t *testing.T) {
	e := newEnv(t)
	_, err := e.sessions.Start(context.Background(), "c1", e.alice)
	require.NoError(t, err)

	e.llm.script(toolCall("call_1", clinic.CmdBookAppointment,
		fmt.Sprintf(`{"doctor_id":%d,"date":"2025-01-12","time":"15:00"}`, e.doctor.ID)))
	e.say(t, "c1", "book")

	reply := e.say(t, "c1", "no thanks")
	assert.Contains(t, reply.Reply, "without an email notification")
	assert.Empty(t, e.mail.messages())
}

func TestGuestToolCallIsRefusedAndExplained(t *testing.T) {
	e := newEnv(t)
	e.llm.script(
		toolCall("", clinic.CmdDeleteDoctor, fmt.Sprintf(`{"doctor_id":%d}`, e.doctor.ID)),
		schema.AssistantMessage("You need to sign in first.", nil),
	)

	reply := e.say(t, "c1", "delete doctor 1")
	assert.Equal(t, "You need to sign in first.", reply.Reply)
	require.Equal(t, 2, e.llm.calls())

	var toolResult *schema.Message
	for _, m := range e.llm.lastInput() {
		if m.Role == schema.Tool {
			toolResult = m
		}
	}
	require.NotNil(t, toolResult)
	assert.Equal(t, "call_1", toolResult.ToolCallID, "missing ids are synthesised")
	assert.True(t, strings.Contains(toolResult.Content, `"error":"authorization"`), toolResult.Content)

	_, err := e.store.GetDoctor(context.Background(), e.doctor.ID)
	assert.NoError(t, err, "nothing was deleted")
}

func TestToolCallLimit(t *testing.T) {
	e := newEnv(t)
	for i := 0; i < 4; i++ {
		e.llm.script(toolCall(fmt.Sprintf("call_%d", i), clinic.CmdListDoctors, `{}`))
	}
	e.llm.script(schema.AssistantMessage("Here are the doctors.", nil))

	reply := e.say(t, "c1", "list doctors again and again")
	assert.LessOrEqual(t, e.llm.calls(), 5)
	assert.NotNil(t, reply)
}

func TestInvokeValidatesInput(t *testing.T) {
	e := newEnv(t)
	_, err := e.runner.Invoke(context.Background(), model.QueryInput{ConversationID: "", Query: "hi"})
	assert.Error(t, err)
	_, err = e.runner.Invoke(context.Background(), model.QueryInput{ConversationID: "c1", Query: "  "})
	assert.Error(t, err)
	assert.Equal(t, 0, e.llm.calls())
}
