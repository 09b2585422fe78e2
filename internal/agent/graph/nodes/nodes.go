package nodes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/doctor-appointment-agent/server/internal/agent/booking"
	"github.com/doctor-appointment-agent/server/internal/agent/clinic"
	"github.com/doctor-appointment-agent/server/internal/agent/graph/conversations"
	"github.com/doctor-appointment-agent/server/internal/agent/graph/prompts"
	"github.com/doctor-appointment-agent/server/internal/agent/graph/tools"
	"github.com/doctor-appointment-agent/server/internal/agent/model"
	errx "github.com/doctor-appointment-agent/server/internal/core/error"
	logx "github.com/doctor-appointment-agent/server/pkg/logger"
)

// NoLongerPendingReply answers a confirmation that was resolved elsewhere,
// e.g. by the expiry sweeper, between loading and resuming.
const NoLongerPendingReply = "That booking is no longer waiting for an answer. You can turn email notifications on for it at any time."

type SessionSource interface {
	Current(ctx context.Context, conversationID string) (*model.Session, error)
}

// Bookings is the part of the booking workflow the graph drives directly.
type Bookings interface {
	Pending(ctx context.Context, conversationID string) (*model.PendingBooking, error)
	Resume(ctx context.Context, conversationID, answer string) (*booking.Result, error)
	Location() *time.Location
}

// NewSessionLoaderPreHandler creates the pre-handler for SessionLoader node
func NewSessionLoaderPreHandler() func(context.Context, model.QueryInput, *model.AppState) (model.QueryInput, error) {
	return func(ctx context.Context, in model.QueryInput, s *model.AppState) (model.QueryInput, error) {
		if s.ConversationID == "" {
			s.ConversationID = in.ConversationID
		}
		// Reset per-query counters
		s.ToolCallCount = 0
		s.ToolCallLimitReached = false
		s.ToolCallIDSeq = 0
		s.Suspension = nil
		s.TotalCostUSD = 0
		return in, nil
	}
}

// NewSessionLoaderNode saves the user turn and loads the caller's session and
// any live pending booking into state.
func NewSessionLoaderNode(
	mm *conversations.MessagesManager,
	sessions SessionSource,
	bookings Bookings,
	now func() time.Time,
) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.QueryInput) (model.QueryInput, error) {
		if err := mm.SaveUserMessage(ctx, in.ConversationID, in.Query); err != nil {
			return in, fmt.Errorf("save user message: %w", err)
		}
		sess, err := sessions.Current(ctx, in.ConversationID)
		if err != nil {
			return in, fmt.Errorf("load session: %w", err)
		}
		pending, err := bookings.Pending(ctx, in.ConversationID)
		if err != nil {
			return in, fmt.Errorf("load pending booking: %w", err)
		}
		if pending != nil && pending.Expired(now()) {
			// left for the sweeper; the turn is handled normally
			pending = nil
		}

		err = compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			state.Session = sess
			state.Pending = pending
			return nil
		})
		if err != nil {
			return in, fmt.Errorf("failed to access state: %w", err)
		}
		return in, nil
	})
}

// NewPendingConfirmationCondition routes a turn that answers a suspended booking
// to the Confirmation node.
func NewPendingConfirmationCondition() func(context.Context, model.QueryInput) (string, error) {
	return func(ctx context.Context, in model.QueryInput) (string, error) {
		var pending *model.PendingBooking
		_ = compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			pending = state.Pending
			return nil
		})
		if pending != nil {
			logx.Debug().
				Str("conversation_id", in.ConversationID).
				Uint("appointment_id", pending.AppointmentID).
				Msg("Routing to Confirmation - booking waits for an answer")
			return NodeConfirmation, nil
		}
		return NodeResponseAssembler, nil
	}
}

// NewConfirmationNode resumes the suspended booking with the raw user text.
// The model is not consulted.
func NewConfirmationNode(mm *conversations.MessagesManager, bookings Bookings) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.QueryInput) (*schema.Message, error) {
		content := NoLongerPendingReply
		res, err := bookings.Resume(ctx, in.ConversationID, in.Query)
		switch {
		case err == nil:
			content = res.Summary
		case errors.Is(err, errx.ErrNotFound):
			logx.Debug().Str("conversation_id", in.ConversationID).Msg("Confirmation already resolved")
		default:
			return nil, fmt.Errorf("resume booking: %w", err)
		}

		out := schema.AssistantMessage(content, nil)
		if res != nil {
			out.Extra = map[string]any{"booking_state": string(res.State)}
		}
		saveFinal(ctx, mm, in.ConversationID, content)
		return out, nil
	})
}

// NewResponseAssemblerNode creates the ResponseAssembler node for building response context
func NewResponseAssemblerNode(
	mm *conversations.MessagesManager,
	responsePromptConfig *model.ResponsePromptConfig,
	bookings Bookings,
	now func() time.Time,
) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.QueryInput) ([]*schema.Message, error) {
		var sess *model.Session
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			sess = state.Session
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		respSysPrompt, err := prompts.RenderResponseSystem(ctx, *responsePromptConfig, sess, now().In(bookings.Location()))
		if err != nil {
			return nil, fmt.Errorf("generate response prompt: %w", err)
		}

		messages, err := mm.BuildResponseContext(ctx, in.ConversationID, respSysPrompt)
		if err != nil {
			return nil, fmt.Errorf("build response context: %w", err)
		}
		return messages, nil
	})
}

// NewResponseChatModelPreHandler creates the pre-handler for ResponseChatModel node
func NewResponseChatModelPreHandler(maxToolCalls int) func(context.Context, []*schema.Message, *model.AppState) ([]*schema.Message, error) {
	return func(ctx context.Context, in []*schema.Message, state *model.AppState) ([]*schema.Message, error) {
		// Some providers drop tool_call_id on tool results; recover it from the last assistant call.
		if len(in) > 0 {
			last := in[len(in)-1]
			if last != nil && last.Role == schema.Tool && strings.TrimSpace(last.ToolCallID) == "" {
				for i := len(state.History) - 1; i >= 0; i-- {
					msg := state.History[i]
					if msg == nil || msg.Role != schema.Assistant || len(msg.ToolCalls) == 0 {
						continue
					}
					if id := msg.ToolCalls[0].ID; strings.TrimSpace(id) != "" {
						last.ToolCallID = id
					}
					break
				}
			}
		}

		state.History = append(state.History, in...)

		if budget := budgetOf(maxToolCalls); budget.exhausted(state) {
			wrapUp := &schema.Message{
				Role: schema.System,
				Content: fmt.Sprintf(
					"SYSTEM NOTICE: You have reached the maximum tool call limit (%d). "+
						"Answer with the information you already have and tell the caller what could not be done.",
					int(budget),
				),
			}
			state.History = append(state.History, wrapUp)
		}

		return state.History, nil
	}
}

// NewResponseChatModelPostHandler creates the post-handler for ResponseChatModel node
func NewResponseChatModelPostHandler(
	mm *conversations.MessagesManager,
	modelName string,
) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		if out == nil {
			return nil, fmt.Errorf("response model returned no message")
		}

		if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
			usage := out.ResponseMeta.Usage
			cost := model.CostOf(modelName, usage)
			state.TotalCostUSD += cost.Total()
			logx.Debug().
				Str("conversation_id", state.ConversationID).
				Str("node", NodeResponseChatModel).
				Str("model", modelName).
				Int("prompt_tokens", usage.PromptTokens).
				Int("completion_tokens", usage.CompletionTokens).
				Int("total_tokens", usage.TotalTokens).
				Float64("total_cost_usd", cost.Total()).
				Msg("LLM usage")
		}
		if out.Extra == nil {
			out.Extra = map[string]any{}
		}
		out.Extra[model.ExtraUsageCost] = state.TotalCostUSD

		for i := range out.ToolCalls {
			if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
				state.ToolCallIDSeq++
				out.ToolCalls[i].ID = fmt.Sprintf("call_%d", state.ToolCallIDSeq)
			}
		}

		state.History = append(state.History, out)

		// Save only a final answer: no more tool calls, or the limit cut the loop short.
		if out.Role == schema.Assistant && (len(out.ToolCalls) == 0 || state.ToolCallLimitReached) && strings.TrimSpace(out.Content) != "" {
			saveFinal(ctx, mm, state.ConversationID, out.Content)
		}
		return out, nil
	}
}

// NewToolExecutorCondition creates the condition function for tool execution routing
func NewToolExecutorCondition() func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, input *schema.Message) (string, error) {
		var limitReached bool
		_ = compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			limitReached = state.ToolCallLimitReached
			return nil
		})

		if limitReached {
			logx.Debug().Msg("Tool limit reached previously - routing to end")
			return compose.END, nil
		}
		if len(input.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(input.ToolCalls)).Msg("Routing to ToolExecutor")
			return NodeToolExecutor, nil
		}
		return compose.END, nil
	}
}

// NewToolExecutorPreHandler creates the pre-handler for ToolExecutor node
func NewToolExecutorPreHandler(maxToolCalls int) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, in *schema.Message, state *model.AppState) (*schema.Message, error) {
		budget := budgetOf(maxToolCalls)
		exceeded := budget.spend(state)

		logx.Debug().
			Int("tool_call_count", state.ToolCallCount).
			Str("conversation_id", state.ConversationID).
			Msg("Tool execution attempt")

		if exceeded {
			logx.Warn().
				Int("tool_call_count", state.ToolCallCount).
				Int("max_tool_calls", int(budget)).
				Str("conversation_id", state.ConversationID).
				Msg("Tool call limit exceeded - flagging and continuing")
		}
		return in, nil
	}
}

// NewToolExecutorPostHandler records a booking suspension raised by a tool result.
func NewToolExecutorPostHandler() func(context.Context, []*schema.Message, *model.AppState) ([]*schema.Message, error) {
	return func(ctx context.Context, out []*schema.Message, state *model.AppState) ([]*schema.Message, error) {
		names := lastToolCallNames(state.History)
		for _, msg := range out {
			if msg == nil {
				continue
			}
			name := msg.ToolName
			if name == "" {
				name = names[msg.ToolCallID]
			}
			if name != clinic.CmdBookAppointment {
				continue
			}
			if s, ok := tools.SuspensionFrom(msg.Content); ok {
				state.Suspension = s
			}
		}
		return out, nil
	}
}

// NewSuspendCondition ends the turn when a booking waits for confirmation.
func NewSuspendCondition() func(context.Context, []*schema.Message) (string, error) {
	return func(ctx context.Context, _ []*schema.Message) (string, error) {
		var suspended bool
		_ = compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			suspended = state.Suspension != nil
			return nil
		})
		if suspended {
			return NodeSuspend, nil
		}
		return NodeResponseChatModel, nil
	}
}

// NewSuspendNode replies with the confirmation question and ends the turn.
func NewSuspendNode(mm *conversations.MessagesManager) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ []*schema.Message) (*schema.Message, error) {
		var (
			conversationID string
			suspension     *model.Suspension
			cost           float64
		)
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			conversationID = state.ConversationID
			suspension = state.Suspension
			cost = state.TotalCostUSD
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}
		if suspension == nil {
			return nil, fmt.Errorf("suspend reached without a pending booking")
		}

		prompt := suspension.Prompt
		if prompt == "" {
			prompt = booking.ConfirmationPrompt
		}
		out := schema.AssistantMessage(prompt, nil)
		out.Extra = map[string]any{
			model.ExtraPendingConfirmation: true,
			model.ExtraUsageCost:           cost,
		}
		logx.Info().
			Str("conversation_id", conversationID).
			Uint("appointment_id", suspension.AppointmentID).
			Msg("Turn suspended for booking confirmation")
		saveFinal(ctx, mm, conversationID, prompt)
		return out, nil
	})
}

func lastToolCallNames(history []*schema.Message) map[string]string {
	names := map[string]string{}
	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		if msg == nil || msg.Role != schema.Assistant || len(msg.ToolCalls) == 0 {
			continue
		}
		for _, tc := range msg.ToolCalls {
			names[tc.ID] = tc.Function.Name
		}
		break
	}
	return names
}

func saveFinal(ctx context.Context, mm *conversations.MessagesManager, conversationID, content string) {
	if err := mm.SaveResponse(ctx, conversationID, content); err != nil {
		logx.Error().
			Str("conversation_id", conversationID).
			Err(err).
			Msg("Error saving assistant response")
	}
}
