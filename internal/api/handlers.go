package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/doctor-appointment-agent/server/internal/agent/clinic"
	"github.com/doctor-appointment-agent/server/internal/agent/model"
)

const (
	headerConversationID = "X-Conversation-ID"
	maxCommandBody       = 64 << 10
)

type ChatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message" binding:"required"`
}

type CommandResponse struct {
	ConversationID string `json:"conversation_id"`
	Command        string `json:"command"`
	Result         any    `json:"result"`
}

// Chat runs one conversational turn. A missing conversation id starts a new
// conversation; the id is echoed back so the client can continue it.
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "message is required")
		return
	}

	convID := strings.TrimSpace(req.ConversationID)
	if convID == "" {
		convID = uuid.NewString()
	}

	reply, err := h.chat.Invoke(c.Request.Context(), model.QueryInput{
		ConversationID: convID,
		Query:          req.Message,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (h *Handler) ListCommands(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"commands": clinic.Names()})
}

// RunCommand decodes the body as the named command and executes it under the
// session bound to the conversation.
func (h *Handler) RunCommand(c *gin.Context) {
	name := c.Param("name")

	convID := strings.TrimSpace(c.GetHeader(headerConversationID))
	if convID == "" {
		convID = strings.TrimSpace(c.Query("conversation_id"))
	}
	if convID == "" {
		convID = uuid.NewString()
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCommandBody))
	if err != nil {
		badRequest(c, "could not read request body")
		return
	}

	cmd, err := clinic.Decode(name, raw)
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := h.commands.ExecuteFor(c.Request.Context(), convID, cmd)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header(headerConversationID, convID)
	c.JSON(http.StatusOK, CommandResponse{
		ConversationID: convID,
		Command:        name,
		Result:         result,
	})
}
