package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doctor-appointment-agent/server/internal/agent/access"
	"github.com/doctor-appointment-agent/server/internal/agent/booking"
	"github.com/doctor-appointment-agent/server/internal/agent/clinic"
	"github.com/doctor-appointment-agent/server/internal/agent/model"
	"github.com/doctor-appointment-agent/server/internal/agent/notify"
	"github.com/doctor-appointment-agent/server/internal/agent/repo"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeChat struct {
	got   model.QueryInput
	reply *model.Reply
	err   error
}

func (f *fakeChat) Invoke(_ context.Context, in model.QueryInput) (*model.Reply, error) {
	f.got = in
	if f.err != nil {
		return nil, f.err
	}
	r := *f.reply
	r.ConversationID = in.ConversationID
	return &r, nil
}

// outbox records sent mail.
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

func newDispatcher(t *testing.T) *clinic.Dispatcher {
	return newDispatcherWith(t, notify.StubSender{})
}

func newDispatcherWith(t *testing.T, sender notify.EmailSender) *clinic.Dispatcher {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := repo.NewMemoryStore()
	sessions := access.NewSessions(repo.NewRedisSessionRepository(rdb), store, access.NewTokenIssuer("test-secret", time.Hour))
	wf := booking.NewWorkflow(store, repo.NewRedisCheckpointRepository(rdb), notify.NewNotifier(sender), booking.Config{ConfirmationTTL: time.Hour})
	return clinic.NewDispatcher(access.NewGate(), sessions, store, wf)
}

func do(t *testing.T, r http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	r := NewRouter(NewHandler(nil, newDispatcher(t)))

	w := do(t, r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(headerRequestID))

	w = do(t, r, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodPost, "/v1/chat", `{"message":"hi"}`, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChat(t *testing.T) {
	chat := &fakeChat{reply: &model.Reply{Reply: "Hello!"}}
	r := NewRouter(NewHandler(chat, newDispatcher(t)))

	t.Run("new conversation gets an id", func(t *testing.T) {
		w := do(t, r, http.MethodPost, "/v1/chat", `{"message":"hi"}`, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		got := decode[model.Reply](t, w)
		assert.Equal(t, "Hello!", got.Reply)
		assert.NotEmpty(t, got.ConversationID)
		assert.Equal(t, got.ConversationID, chat.got.ConversationID)
		assert.Equal(t, "hi", chat.got.Query)
	})

	t.Run("existing conversation is kept", func(t *testing.T) {
		w := do(t, r, http.MethodPost, "/v1/chat", `{"conversation_id":"conv-7","message":"yes"}`, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "conv-7", decode[model.Reply](t, w).ConversationID)
	})

	t.Run("missing message", func(t *testing.T) {
		w := do(t, r, http.MethodPost, "/v1/chat", `{"conversation_id":"conv-7"}`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "validation", decode[ErrorBody](t, w).Code)
	})

	t.Run("internal failures are not leaked", func(t *testing.T) {
		chat.err = errors.New("gemini: connection reset by peer")
		defer func() { chat.err = nil }()
		w := do(t, r, http.MethodPost, "/v1/chat", `{"message":"hi"}`, nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decode[ErrorBody](t, w)
		assert.Equal(t, "internal", body.Code)
		assert.NotContains(t, body.Message, "gemini")
	})
}

func TestCommandsFlow(t *testing.T) {
	mail := &outbox{}
	r := NewRouter(NewHandler(nil, newDispatcherWith(t, mail)))
	conv := map[string]string{headerConversationID: "conv-1"}

	w := do(t, r, http.MethodGet, "/v1/commands", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, clinic.Names(), decode[map[string][]string](t, w)["commands"])

	w = do(t, r, http.MethodPost, "/v1/commands/add_doctor", `{"name":"Dr. Ali","specialty":"Cardiology"}`, conv)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "authorization", decode[ErrorBody](t, w).Code)

	w = do(t, r, http.MethodPost, "/v1/commands/sign_up",
		`{"username":"root","password":"pw","role":"admin","email":"root@example.com"}`, conv)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodPost, "/v1/commands/sign_in", `{"username":"root","password":"pw"}`, conv)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "conv-1", w.Header().Get(headerConversationID))

	w = do(t, r, http.MethodPost, "/v1/commands/who_am_i?conversation_id=conv-1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[struct {
		Result clinic.SessionView `json:"result"`
	}](t, w)
	assert.Equal(t, model.RoleAdmin, resp.Result.Role)
	assert.Equal(t, "root", resp.Result.Username)

	w = do(t, r, http.MethodPost, "/v1/commands/add_doctor", `{"name":"Dr. Ali","specialty":"Cardiology"}`, conv)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodPost, "/v1/commands/get_doctor", `{"doctor_id":99}`, conv)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode[ErrorBody](t, w).Code)

	w = do(t, r, http.MethodPost, "/v1/commands/confirm_booking", `{"answer":"yes"}`, conv)
	assert.Equal(t, http.StatusForbidden, w.Code, "admins cannot answer booking questions")

	patient := map[string]string{headerConversationID: "conv-2"}
	w = do(t, r, http.MethodPost, "/v1/commands/sign_up",
		`{"username":"alice","password":"pw","role":"user","email":"alice@example.com"}`, patient)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = do(t, r, http.MethodPost, "/v1/commands/sign_in", `{"username":"alice","password":"pw"}`, patient)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodPost, "/v1/commands/confirm_booking", `{"answer":"yes"}`, patient)
	assert.Equal(t, http.StatusNotFound, w.Code, "nothing is pending yet")

	w = do(t, r, http.MethodPost, "/v1/commands/book_appointment", `{"doctor_id":1,"date":"2030-01-12","time":"15:00"}`, patient)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	booked := decode[struct {
		Result booking.Suspension `json:"result"`
	}](t, w)
	assert.NotZero(t, booked.Result.AppointmentID)
	assert.Empty(t, mail.messages(), "nothing is sent before the answer")

	w = do(t, r, http.MethodPost, "/v1/commands/confirm_booking", `{"answer":"  "}`, patient)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/v1/commands/confirm_booking", `{"answer":"Yes"}`, patient)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	confirmed := decode[struct {
		Result booking.Result `json:"result"`
	}](t, w)
	assert.Equal(t, booked.Result.AppointmentID, confirmed.Result.AppointmentID)
	assert.True(t, confirmed.Result.NotificationStatus)
	assert.True(t, confirmed.Result.NotificationDelivered)
	assert.Equal(t, model.BookingConfirmed, confirmed.Result.State)
	require.Len(t, mail.messages(), 1)
	assert.Equal(t, "alice@example.com", mail.messages()[0].To)

	w = do(t, r, http.MethodPost, "/v1/commands/confirm_booking", `{"answer":"yes"}`, patient)
	assert.Equal(t, http.StatusNotFound, w.Code, "the answer is consumed")
}

func TestCommandDecodeErrors(t *testing.T) {
	r := NewRouter(NewHandler(nil, newDispatcher(t)))

	w := do(t, r, http.MethodPost, "/v1/commands/launch_rockets", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[ErrorBody](t, w).Message, "unknown command")

	w = do(t, r, http.MethodPost, "/v1/commands/get_doctor", `{"doctor_id":"abc"`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	r := NewRouter(NewHandler(nil, newDispatcher(t)))
	w := do(t, r, http.MethodOptions, "/v1/commands/sign_in", "", map[string]string{"Origin": "https://clinic.example"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://clinic.example", w.Header().Get("Access-Control-Allow-Origin"))
}
