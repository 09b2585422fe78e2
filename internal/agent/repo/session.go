package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/doctor-appointment-agent/server/internal/agent/model"
	errx "github.com/doctor-appointment-agent/server/internal/core/error"
	logx "github.com/doctor-appointment-agent/server/pkg/logger"
)

type RedisSessionRepository struct {
	rdb redis.Cmdable
}

func NewRedisSessionRepository(rdb redis.Cmdable) *RedisSessionRepository {
	return &RedisSessionRepository{rdb: rdb}
}

func sessionKey(conversationID string) string {
	return fmt.Sprintf("session:%s:token", conversationID)
}

func (r *RedisSessionRepository) SaveToken(ctx context.Context, conversationID, token string, ttl time.Duration) error {
	key := sessionKey(conversationID)
	if err := r.rdb.Set(ctx, key, token, ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save session token")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisSessionRepository) LoadToken(ctx context.Context, conversationID string) (string, error) {
	key := sessionKey(conversationID)
	token, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load session token")
		return "", errx.WrapRedis(err)
	}
	return token, nil
}

func (r *RedisSessionRepository) DeleteToken(ctx context.Context, conversationID string) error {
	key := sessionKey(conversationID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete session token")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.SessionRepository = (*RedisSessionRepository)(nil)
