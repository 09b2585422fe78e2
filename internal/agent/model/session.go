package model

import (
	"context"
	"time"
)

// Session is the resolved identity behind a conversation.
type Session struct {
	ConversationID string `json:"conversation_id"`
	UserID         uint   `json:"user_id,omitempty"`
	Username       string `json:"username,omitempty"`
	Email          string `json:"email,omitempty"`
	Role           Role   `json:"role"`
}

func GuestSession(conversationID string) *Session {
	return &Session{ConversationID: conversationID, Role: RoleGuest}
}

func (s *Session) IsGuest() bool {
	return s == nil || s.Role == RoleGuest || s.UserID == 0
}

// SessionRepository stores the signed session token of a conversation.
type SessionRepository interface {
	SaveToken(ctx context.Context, conversationID, token string, ttl time.Duration) error
	// LoadToken returns "" when the conversation has no session.
	LoadToken(ctx context.Context, conversationID string) (string, error)
	DeleteToken(ctx context.Context, conversationID string) error
}
