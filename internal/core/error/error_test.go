package errx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestKindSentinels(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		sentinel error
		kind     Kind
		status   int
	}{
		{"validation", Validation("email %q is invalid", "x"), ErrValidation, KindValidation, http.StatusBadRequest},
		{"not found", NotFound("doctor", 3), ErrNotFound, KindNotFound, http.StatusNotFound},
		{"authorization", Unauthorized("delete doctors", "user"), ErrAuthorization, KindAuthorization, http.StatusForbidden},
		{"conflict", Conflict("doctor %d has appointments", 1), ErrConflict, KindConflict, http.StatusConflict},
		{"delivery", Delivery(errors.New("dial tcp: timeout")), ErrNotificationDelivery, KindNotificationDelivery, http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("tool call: %w", tc.err)
			assert.ErrorIs(t, wrapped, tc.sentinel)
			assert.Equal(t, tc.kind, KindOf(wrapped))
			assert.Equal(t, tc.status, StatusOf(wrapped))
		})
	}
}

func TestSentinelsDoNotCrossMatch(t *testing.T) {
	err := NotFound("user", 9)
	assert.False(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrAuthorization))
}

func TestNewDerivesKindFromStatus(t *testing.T) {
	assert.Equal(t, KindNotFound, New(nil, http.StatusNotFound, "gone").Kind)
	assert.Equal(t, KindInternal, New(nil, http.StatusBadGateway, "upstream").Kind)
}

func TestPublicMessageHidesInternalErrors(t *testing.T) {
	assert.Equal(t, "doctor 2 not found", PublicMessage(NotFound("doctor", 2)))
	assert.Equal(t, SystemErrorMessage, PublicMessage(Internal(errors.New("boom"), "db down")))
	assert.Equal(t, SystemErrorMessage, PublicMessage(errors.New("plain")))
}

func TestWrapRedis(t *testing.T) {
	assert.NoError(t, WrapRedis(nil))

	err := WrapRedis(redis.Nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, redis.Nil)

	err = WrapRedis(errors.New("connection refused"))
	assert.Equal(t, http.StatusBadGateway, StatusOf(err))
}

func TestWrapGorm(t *testing.T) {
	assert.NoError(t, WrapGorm(nil, "doctor", 1))

	err := WrapGorm(gorm.ErrRecordNotFound, "doctor", 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "doctor 1 not found", PublicMessage(err))

	assert.ErrorIs(t, WrapGorm(gorm.ErrDuplicatedKey, "user", "alice"), ErrValidation)
	assert.ErrorIs(t, WrapGorm(gorm.ErrForeignKeyViolated, "appointment", 0), ErrConflict)
	assert.Equal(t, KindInternal, KindOf(WrapGorm(errors.New("broken pipe"), "doctor", 1)))

	passthrough := Validation("username %q is already taken", "alice")
	assert.Same(t, passthrough, WrapGorm(passthrough, "user", "alice"))
}
