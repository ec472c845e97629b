package services

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckLimit_UnderLimit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	svc := NewRateLimitService(client)

	mock.ExpectIncr("packlane:ratelimit:user-1").SetVal(3)
	mock.ExpectExpire("packlane:ratelimit:user-1", time.Minute).SetVal(true)

	allowed, retryAfter, err := svc.CheckLimit(context.Background(), "user-1", 10, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, retryAfter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckLimit_OverLimit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	svc := NewRateLimitService(client)

	mock.ExpectIncr("packlane:ratelimit:user-1").SetVal(11)
	mock.ExpectExpire("packlane:ratelimit:user-1", time.Minute).SetVal(true)
	mock.ExpectTTL("packlane:ratelimit:user-1").SetVal(42 * time.Second)

	allowed, retryAfter, err := svc.CheckLimit(context.Background(), "user-1", 10, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 42*time.Second, retryAfter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckLimit_RedisFailure(t *testing.T) {
	client, mock := redismock.NewClientMock()
	svc := NewRateLimitService(client)

	mock.ExpectIncr("packlane:ratelimit:user-1").SetErr(assert.AnError)

	_, _, err := svc.CheckLimit(context.Background(), "user-1", 10, time.Minute)
	assert.Error(t, err)
}
