package access

import (
	"context"
	"errors"

	"github.com/doctor-appointment-agent/server/internal/agent/model"
	errx "github.com/doctor-appointment-agent/server/internal/core/error"
	logx "github.com/doctor-appointment-agent/server/pkg/logger"
)

// Sessions resolves and binds the identity of a conversation.
type Sessions struct {
	repo   model.SessionRepository
	users  model.UserRepository
	tokens *TokenIssuer
}

func NewSessions(repo model.SessionRepository, users model.UserRepository, tokens *TokenIssuer) *Sessions {
	return &Sessions{repo: repo, users: users, tokens: tokens}
}

// Current returns the conversation's session. Missing, tampered or expired
// tokens and deleted accounts all resolve to a guest.
func (s *Sessions) Current(ctx context.Context, conversationID string) (*model.Session, error) {
	raw, err := s.repo.LoadToken(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return model.GuestSession(conversationID), nil
	}

	claims, err := s.tokens.Parse(raw, conversationID)
	if err != nil {
		logx.Debug().Err(err).Str("conversation_id", conversationID).Msg("discarding invalid session token")
		s.drop(ctx, conversationID)
		return model.GuestSession(conversationID), nil
	}

	u, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, errx.ErrNotFound) {
			s.drop(ctx, conversationID)
			return model.GuestSession(conversationID), nil
		}
		return nil, err
	}
	return sessionFor(conversationID, u), nil
}

// Start signs u into the conversation.
func (s *Sessions) Start(ctx context.Context, conversationID string, u *model.User) (*model.Session, error) {
	token, err := s.tokens.Issue(u, conversationID)
	if err != nil {
		return nil, errx.Internal(err, errx.SystemErrorMessage)
	}
	if err := s.repo.SaveToken(ctx, conversationID, token, s.tokens.TTL()); err != nil {
		return nil, err
	}
	logx.Info().Str("conversation_id", conversationID).Uint("user_id", u.ID).Str("role", string(u.Role)).Msg("session started")
	return sessionFor(conversationID, u), nil
}

func (s *Sessions) End(ctx context.Context, conversationID string) error {
	return s.repo.DeleteToken(ctx, conversationID)
}

func (s *Sessions) drop(ctx context.Context, conversationID string) {
	if err := s.repo.DeleteToken(ctx, conversationID); err != nil {
		logx.Warn().Err(err).Str("conversation_id", conversationID).Msg("failed to drop session token")
	}
}

func sessionFor(conversationID string, u *model.User) *model.Session {
	return &model.Session{
		ConversationID: conversationID,
		UserID:         u.ID,
		Username:       u.Username,
		Email:          u.Email,
		Role:           u.Role,
	}
}
