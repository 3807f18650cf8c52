package ratelimit

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/horecaalert/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilRunGuardAllowsEverything(t *testing.T) {
	var g *RunGuard
	ctx := context.Background()

	assert.False(t, g.Enabled())

	token, ok, err := g.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, token)
	assert.NoError(t, g.Release(ctx, token))

	res, err := g.AllowTrigger(ctx)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRunGuardWithoutRedisClient(t *testing.T) {
	g := NewRunGuard(NewLocker(nil), NewTriggerBudget(nil, keyTriggerRate, 1, 1), config.RedisConfig{TriggerRate: 1, TriggerBurst: 1})
	assert.False(t, g.Enabled())
	assert.Equal(t, defaultLockTTL, g.lockTTL)

	res, err := g.AllowTrigger(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLockerRequiresClient(t *testing.T) {
	var l *Locker
	_, _, err := l.TryLock(context.Background(), keyRunLock, time.Minute)
	assert.ErrorIs(t, err, ErrLockNotConfigured)
}

func TestNewTriggerBudgetUnbounded(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	t.Cleanup(func() { _ = client.Close() })

	assert.Nil(t, NewTriggerBudget(nil, keyTriggerRate, 1, 1))
	assert.Nil(t, NewTriggerBudget(client, keyTriggerRate, 0, 1))
	assert.Nil(t, NewTriggerBudget(client, keyTriggerRate, 1, 0))
	assert.Nil(t, NewTriggerBudget(client, "", 1, 1))
	assert.NotNil(t, NewTriggerBudget(client, keyTriggerRate, 1, 1))

	var budget *TriggerBudget
	_, err := budget.Take(context.Background())
	assert.ErrorIs(t, err, ErrTriggerBudgetDisabled)
}

func TestBudgetTTL(t *testing.T) {
	assert.Equal(t, 12*time.Second, budgetTTL(0.5, 3))
	assert.Equal(t, time.Second, budgetTTL(100, 1))
	assert.Equal(t, 360*time.Second, budgetTTL(1.0/60, 3))
}

func TestParseBudgetReply(t *testing.T) {
	res, err := parseBudgetReply([]interface{}{int64(0), int64(0), int64(42000)}, 3)
	require.NoError(t, err)
	assert.Equal(t, &TriggerResult{Allowed: false, Limit: 3, Remaining: 0, RetryAfter: 42 * time.Second}, res)

	res, err = parseBudgetReply([]interface{}{int64(1), int64(2), int64(0)}, 3)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Remaining)
	assert.Zero(t, res.RetryAfter)

	_, err = parseBudgetReply([]interface{}{int64(1), "2"}, 3)
	assert.Error(t, err)
	_, err = parseBudgetReply([]interface{}{int64(1), "2", int64(0)}, 3)
	assert.Error(t, err)
}
