package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/horecaalert/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyRunLock     = "horecaalert:search-alerts:run"
	keyTriggerRate = "horecaalert:search-alerts:trigger"

	defaultLockTTL = 15 * time.Minute
)

// RunGuard keeps matching runs from overlapping across replicas and throttles
// external triggers. A nil guard allows everything.
type RunGuard struct {
	locker  *Locker
	budget  *TriggerBudget
	lockTTL time.Duration
}

func NewRunGuard(locker *Locker, budget *TriggerBudget, cfg config.RedisConfig) *RunGuard {
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RunGuard{
		locker:  locker,
		budget:  budget,
		lockTTL: ttl,
	}
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

type GuardParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
}

// ProvideRunGuard connects to Redis when REDIS_URL is set and returns nil otherwise.
func ProvideRunGuard(p GuardParams) (*RunGuard, error) {
	log := p.Log.Named("ratelimit")
	if p.Config.Redis.URL == "" {
		log.Info("redis not configured, runs are not locked across replicas")
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := NewRedisClient(ctx, p.Config.Redis.URL)
	if err != nil {
		return nil, err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	budget := NewTriggerBudget(client, keyTriggerRate, p.Config.Redis.TriggerRate, p.Config.Redis.TriggerBurst)
	return NewRunGuard(NewLocker(client), budget, p.Config.Redis), nil
}

func (g *RunGuard) Enabled() bool {
	return g != nil && g.locker != nil
}

// Acquire takes the run lock. ok is false when another run holds it.
func (g *RunGuard) Acquire(ctx context.Context) (token string, ok bool, err error) {
	if !g.Enabled() {
		return "", true, nil
	}
	return g.locker.TryLock(ctx, keyRunLock, g.lockTTL)
}

func (g *RunGuard) Release(ctx context.Context, token string) error {
	if !g.Enabled() {
		return nil
	}
	return g.locker.Release(ctx, keyRunLock, token)
}

// AllowTrigger spends one token of the external trigger budget.
func (g *RunGuard) AllowTrigger(ctx context.Context) (*TriggerResult, error) {
	if g == nil || g.budget == nil {
		return &TriggerResult{Allowed: true}, nil
	}
	return g.budget.Take(ctx)
}
