// Package api exposes the assistant over HTTP: a chat endpoint backed by the
// agent graph and a model-free command endpoint backed by the dispatcher.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/doctor-appointment-agent/server/internal/agent/clinic"
	"github.com/doctor-appointment-agent/server/internal/agent/model"
	"github.com/doctor-appointment-agent/server/pkg/metrics"
)

type ChatRunner interface {
	Invoke(ctx context.Context, in model.QueryInput) (*model.Reply, error)
}

type CommandExecutor interface {
	ExecuteFor(ctx context.Context, conversationID string, cmd clinic.Command) (any, error)
}

type Handler struct {
	chat     ChatRunner
	commands CommandExecutor
}

func NewHandler(chat ChatRunner, commands CommandExecutor) *Handler {
	return &Handler{chat: chat, commands: commands}
}

// NewRouter registers every route on a fresh engine. A nil chat runner
// leaves /v1/chat unregistered.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), corsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/v1")
	if h.chat != nil {
		v1.POST("/chat", h.Chat)
	}
	v1.GET("/commands", h.ListCommands)
	v1.POST("/commands/:name", h.RunCommand)

	return r
}
