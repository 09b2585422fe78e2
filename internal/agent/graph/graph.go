package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/doctor-appointment-agent/server/internal/agent/graph/conversations"
	"github.com/doctor-appointment-agent/server/internal/agent/graph/nodes"
	"github.com/doctor-appointment-agent/server/internal/agent/graph/observers"
	"github.com/doctor-appointment-agent/server/internal/agent/graph/parsers"
	"github.com/doctor-appointment-agent/server/internal/agent/graph/tools"
	"github.com/doctor-appointment-agent/server/internal/agent/model"
	errx "github.com/doctor-appointment-agent/server/internal/core/error"
	logx "github.com/doctor-appointment-agent/server/pkg/logger"
)

// Runner executes one chat turn.
type Runner interface {
	Invoke(ctx context.Context, in model.QueryInput) (*model.Reply, error)
}

// Config holds everything needed to compose the full response graph end-to-end.
// This is a convenience layer over GraphConfig that also constructs ChatModels and MessagesManager.
type Config struct {
	APIKey           string
	BaseURL          string
	ResponseModel    model.ResponseModelConfig
	ResponsePrompt   model.ResponsePromptConfig
	Conversation     model.ConversationConfig
	ConversationRepo model.ConversationRepository
	Executor         tools.Executor
	Sessions         nodes.SessionSource
	Bookings         nodes.Bookings
}

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	ChatModels           *nodes.ChatModels
	MessagesManager      *conversations.MessagesManager
	ResponsePromptConfig *model.ResponsePromptConfig
	ToolMaxCalls         int
	Tools                []tool.BaseTool
	Sessions             nodes.SessionSource
	Bookings             nodes.Bookings
	// Now defaults to time.Now.
	Now func() time.Time
}

// GraphBuilder handles the construction of the agent conversation graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.QueryInput, *schema.Message]
}

type graphRunner struct {
	runnable compose.Runnable[model.QueryInput, *schema.Message]
}

func (r *graphRunner) Invoke(ctx context.Context, in model.QueryInput) (*model.Reply, error) {
	in.ConversationID = strings.TrimSpace(in.ConversationID)
	if in.ConversationID == "" {
		return nil, errx.Validation("conversation id is required")
	}
	if strings.TrimSpace(in.Query) == "" {
		return nil, errx.Validation("message is empty")
	}

	ctx = model.WithConversationID(ctx, in.ConversationID)
	out, err := r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		return nil, err
	}

	reply := &model.Reply{ConversationID: in.ConversationID}
	if out == nil {
		return reply, nil
	}
	reply.Reply = out.Content
	if v, ok := out.Extra[model.ExtraPendingConfirmation].(bool); ok {
		reply.PendingConfirmation = v
	}
	if v, ok := out.Extra[model.ExtraUsageCost].(float64); ok {
		reply.CostUSD = v
	}
	return reply, nil
}

// BuildResponseGraph composes ChatModels, MessagesManager, builds the graph, and returns a Runner.
func BuildResponseGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.ConversationRepo == nil {
		return nil, fmt.Errorf("conversation repo is nil")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("command executor is nil")
	}

	cms, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		RespConfig: &cfg.ResponseModel,
	})
	if err != nil {
		return nil, err
	}

	runner, err := NewRunner(ctx, &GraphConfig{
		ChatModels:           cms,
		MessagesManager:      conversations.NewMessagesManager(cfg.ConversationRepo, cfg.Conversation),
		ResponsePromptConfig: &cfg.ResponsePrompt,
		ToolMaxCalls:         cfg.Conversation.Tools.MaxCalls,
		Tools:                tools.GetClinicTools(cfg.Executor),
		Sessions:             cfg.Sessions,
		Bookings:             cfg.Bookings,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Response graph built successfully")
	return runner, nil
}

// NewRunner compiles the graph from an already assembled GraphConfig.
func NewRunner(ctx context.Context, config *GraphConfig) (Runner, error) {
	runnable, err := BuildGraph(ctx, config)
	if err != nil {
		return nil, err
	}
	return &graphRunner{runnable: runnable}, nil
}

// BuildGraph constructs and returns the compiled agent graph
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.QueryInput, *schema.Message], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.ChatModels == nil || config.ChatModels.Response == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	if config.MessagesManager == nil {
		return nil, fmt.Errorf("messages manager is nil")
	}
	if config.ResponsePromptConfig == nil {
		return nil, fmt.Errorf("response prompt config is nil")
	}
	if config.Sessions == nil || config.Bookings == nil {
		return nil, fmt.Errorf("sessions and bookings are required")
	}
	if len(config.Tools) == 0 {
		return nil, fmt.Errorf("no tools configured")
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.QueryInput, *schema.Message](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				return &model.AppState{}
			}),
		),
	}

	if err := builder.setupTools(ctx); err != nil {
		return nil, err
	}
	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// setupTools binds the clinic tools to the response model and adds the ToolExecutor node
func (b *GraphBuilder) setupTools(ctx context.Context) error {
	toolInfos, err := tools.GetToolInfos(ctx, b.config.Tools)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to get tool infos")
		return fmt.Errorf("failed to get tool infos: %w", err)
	}

	if err := b.config.ChatModels.BindToolsToResponseModel(ctx, toolInfos); err != nil {
		return fmt.Errorf("failed to bind tools to response model: %w", err)
	}

	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:               b.config.Tools,
		ExecuteSequentially: true,
		UnknownToolsHandler: func(ctx context.Context, name, input string) (string, error) {
			logx.Warn().
				Str("tool_name", name).
				Msg("Unknown or invalid tool call; returning fallback result")
			return fmt.Sprintf("{\"error\":\"unknown_tool\",\"message\":\"there is no tool named %q\"}", name), nil
		},
		ToolArgumentsHandler: func(ctx context.Context, name, arguments string) (string, error) {
			return parsers.SanitizeArguments(arguments), nil
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Failed to create tools node")
		return fmt.Errorf("failed to create tools node: %w", err)
	}

	return b.graph.AddToolsNode(nodes.NodeToolExecutor, toolsNode,
		compose.WithStatePreHandler(nodes.NewToolExecutorPreHandler(b.config.ToolMaxCalls)),
		compose.WithStatePostHandler(nodes.NewToolExecutorPostHandler()),
	)
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() error {
	mm := b.config.MessagesManager
	steps := []func() error{
		func() error {
			return b.graph.AddLambdaNode(nodes.NodeSessionLoader,
				nodes.NewSessionLoaderNode(mm, b.config.Sessions, b.config.Bookings, b.config.Now),
				compose.WithStatePreHandler(nodes.NewSessionLoaderPreHandler()),
			)
		},
		func() error {
			return b.graph.AddLambdaNode(nodes.NodeConfirmation, nodes.NewConfirmationNode(mm, b.config.Bookings))
		},
		func() error {
			return b.graph.AddLambdaNode(nodes.NodeResponseAssembler,
				nodes.NewResponseAssemblerNode(mm, b.config.ResponsePromptConfig, b.config.Bookings, b.config.Now),
			)
		},
		func() error {
			return b.graph.AddChatModelNode(nodes.NodeResponseChatModel,
				b.config.ChatModels.Response,
				compose.WithStatePreHandler(nodes.NewResponseChatModelPreHandler(b.config.ToolMaxCalls)),
				compose.WithStatePostHandler(nodes.NewResponseChatModelPostHandler(mm, b.config.ChatModels.ResponseModelName)),
			)
		},
		func() error {
			return b.graph.AddLambdaNode(nodes.NodeSuspend, nodes.NewSuspendNode(mm))
		},
	}
	for _, add := range steps {
		if err := add(); err != nil {
			logx.Error().Err(err).Msg("Error adding graph node")
			return fmt.Errorf("error adding graph node: %w", err)
		}
	}
	return nil
}

// addEdges creates the main flow connections between nodes
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeSessionLoader},
		{nodes.NodeConfirmation, compose.END},
		{nodes.NodeResponseAssembler, nodes.NodeResponseChatModel},
		{nodes.NodeSuspend, compose.END},
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			logx.Error().Err(err).Str("from", edge[0]).Str("to", edge[1]).Msg("Error adding edge")
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates conditional routing branches
func (b *GraphBuilder) addBranches() error {
	confirmationBranch := compose.NewGraphBranch(
		nodes.NewPendingConfirmationCondition(),
		map[string]bool{
			nodes.NodeConfirmation:      true,
			nodes.NodeResponseAssembler: true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeSessionLoader, confirmationBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding confirmation branch")
		return fmt.Errorf("error adding confirmation branch: %w", err)
	}

	decisionBranch := compose.NewGraphBranch(
		nodes.NewToolExecutorCondition(),
		map[string]bool{
			nodes.NodeToolExecutor: true,
			compose.END:            true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeResponseChatModel, decisionBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding decision branch")
		return fmt.Errorf("error adding decision branch: %w", err)
	}

	suspendBranch := compose.NewGraphBranch(
		nodes.NewSuspendCondition(),
		map[string]bool{
			nodes.NodeSuspend:           true,
			nodes.NodeResponseChatModel: true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeToolExecutor, suspendBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding suspend branch")
		return fmt.Errorf("error adding suspend branch: %w", err)
	}

	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.QueryInput, *schema.Message], error) {
	// Limit total run steps to avoid infinite loops in branching or tool retries
	maxSteps := 10 + b.config.ToolMaxCalls*2
	if maxSteps < 20 {
		maxSteps = 20
	}

	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
