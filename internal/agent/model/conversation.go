package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// ConversationRepository keeps the chat transcript of a conversation.
type ConversationRepository interface {
	AddMessage(ctx context.Context, conversationID string, message *schema.Message) error
	LoadHistory(ctx context.Context, conversationID string) (*ConversationHistory, error)
	ClearHistory(ctx context.Context, conversationID string) error
	GetMessageCount(ctx context.Context, conversationID string) (int, error)
}

// ConversationHistory represents loaded conversation data with metadata.
type ConversationHistory struct {
	ConversationID string
	Messages       []*schema.Message
}

// RecentTurns returns the messages starting at the n-th most recent user
// message, so a turn is never split from its tool calls. n <= 0 keeps everything.
func (h *ConversationHistory) RecentTurns(n int) []*schema.Message {
	if h == nil {
		return nil
	}
	if n <= 0 {
		return h.Messages
	}
	seen := 0
	for i := len(h.Messages) - 1; i >= 0; i-- {
		if h.Messages[i].Role == schema.User {
			seen++
			if seen == n {
				return h.Messages[i:]
			}
		}
	}
	return h.Messages
}
