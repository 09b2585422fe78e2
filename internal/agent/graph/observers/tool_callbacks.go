package observers

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/tool"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	agentmodel "github.com/doctor-appointment-agent/server/internal/agent/model"
	logx "github.com/doctor-appointment-agent/server/pkg/logger"
)

type toolStartKey struct{}

func newToolHandler() *callbackHelper.ToolCallbackHandler {
	return &callbackHelper.ToolCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *tool.CallbackInput) context.Context {
			ev := logx.Debug().
				Str("conversation_id", agentmodel.ConversationIDFrom(ctx)).
				Str("tool", info.Name)
			if input != nil {
				// arguments may carry passwords
				ev = ev.Int("arguments_len", len(input.ArgumentsInJSON))
			}
			ev.Msg("tool start")
			return context.WithValue(ctx, toolStartKey{}, time.Now())
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *tool.CallbackOutput) context.Context {
			ev := logx.Debug().
				Str("conversation_id", agentmodel.ConversationIDFrom(ctx)).
				Str("tool", info.Name)
			if start, ok := ctx.Value(toolStartKey{}).(time.Time); ok {
				ev = ev.Dur("took", time.Since(start))
			}
			if output != nil {
				ev = ev.Str("response", output.Response)
			}
			ev.Msg("tool end")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Error().Err(err).
				Str("conversation_id", agentmodel.ConversationIDFrom(ctx)).
				Str("tool", info.Name).
				Msg("tool execution failed")
			return ctx
		},
	}
}
