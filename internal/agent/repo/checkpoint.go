package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/doctor-appointment-agent/server/internal/agent/model"
	errx "github.com/doctor-appointment-agent/server/internal/core/error"
	logx "github.com/doctor-appointment-agent/server/pkg/logger"
)

// pendingIndexKey is a sorted set of conversation ids scored by expiry (unix milliseconds).
const pendingIndexKey = "booking:pending"

// RedisCheckpointRepository stores one suspended booking per conversation.
// Membership in the index is the claim token: whoever removes the member
// owns the checkpoint.
type RedisCheckpointRepository struct {
	rdb redis.Cmdable
}

func NewRedisCheckpointRepository(rdb redis.Cmdable) *RedisCheckpointRepository {
	return &RedisCheckpointRepository{rdb: rdb}
}

func pendingKey(conversationID string) string {
	return fmt.Sprintf("booking:%s:pending", conversationID)
}

func (r *RedisCheckpointRepository) SavePending(ctx context.Context, p *model.PendingBooking) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal pending booking: %w", err)
	}
	key := pendingKey(p.ConversationID)

	ok, err := r.rdb.SetNX(ctx, key, b, 0).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save pending booking")
		return errx.WrapRedis(err)
	}
	if !ok {
		return errx.Conflict("a booking is already waiting for confirmation in this conversation")
	}
	if err := r.rdb.ZAdd(ctx, pendingIndexKey, redis.Z{
		Score:  float64(p.ExpiresAt.UnixMilli()),
		Member: p.ConversationID,
	}).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to index pending booking")
		_ = r.rdb.Del(ctx, key).Err()
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisCheckpointRepository) LoadPending(ctx context.Context, conversationID string) (*model.PendingBooking, error) {
	raw, err := r.rdb.Get(ctx, pendingKey(conversationID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		logx.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to load pending booking")
		return nil, errx.WrapRedis(err)
	}
	return decodePending(raw)
}

func (r *RedisCheckpointRepository) ClaimPending(ctx context.Context, conversationID string) (*model.PendingBooking, error) {
	removed, err := r.rdb.ZRem(ctx, pendingIndexKey, conversationID).Result()
	if err != nil {
		return nil, errx.WrapRedis(err)
	}
	if removed == 0 {
		return nil, nil
	}
	raw, err := r.rdb.GetDel(ctx, pendingKey(conversationID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		logx.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to claim pending booking")
		return nil, errx.WrapRedis(err)
	}
	return decodePending(raw)
}

func (r *RedisCheckpointRepository) ListExpired(ctx context.Context, now time.Time) ([]string, error) {
	ids, err := r.rdb.ZRangeByScore(ctx, pendingIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, errx.WrapRedis(err)
	}
	return ids, nil
}

func (r *RedisCheckpointRepository) ListPending(ctx context.Context) ([]*model.PendingBooking, error) {
	ids, err := r.rdb.ZRange(ctx, pendingIndexKey, 0, -1).Result()
	if err != nil {
		return nil, errx.WrapRedis(err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = pendingKey(id)
	}
	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errx.WrapRedis(err)
	}

	out := make([]*model.PendingBooking, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			// claimed between ZRANGE and MGET
			continue
		}
		p, err := decodePending(s)
		if err != nil {
			logx.Warn().Err(err).Str("conversation_id", ids[i]).Msg("skipping unreadable pending booking")
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func decodePending(raw string) (*model.PendingBooking, error) {
	var p model.PendingBooking
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("unmarshal pending booking: %w", err)
	}
	return &p, nil
}

var _ model.BookingCheckpointRepository = (*RedisCheckpointRepository)(nil)
