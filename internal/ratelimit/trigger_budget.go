package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// The bucket state lives in one hash so every replica serving the cron
// endpoint spends from the same budget. Redis TIME is the only clock, which
// keeps replica clock skew out of the refill.
//
// Returns {allowed, whole tokens left, retry after in ms}.
const triggerBudgetScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local t = redis.call("TIME")
local now = (t[1] * 1000) + math.floor(t[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil or ts == nil then
  tokens = burst
else
  local elapsed = math.max(0, now - ts)
  tokens = math.min(burst, tokens + (elapsed / 1000) * rate)
end

local allowed = 0
local retry = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
else
  retry = math.ceil((1 - tokens) / rate * 1000)
end

redis.call("HSET", KEYS[1], "tokens", tostring(tokens), "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, math.floor(tokens), retry}
`

var ErrTriggerBudgetDisabled = errors.New("trigger budget not configured")

// TriggerBudget throttles external run triggers with a token bucket that
// refills rate tokens per second up to burst.
type TriggerBudget struct {
	client redis.Cmdable
	script *redis.Script
	key    string
	rate   float64
	burst  int
	ttl    time.Duration
}

// TriggerResult is the outcome of spending one trigger token.
type TriggerResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// NewTriggerBudget returns nil when there is no client or the budget is
// unbounded, which callers treat as allow-all.
func NewTriggerBudget(client redis.Cmdable, key string, rate float64, burst int) *TriggerBudget {
	if client == nil || key == "" || rate <= 0 || burst <= 0 {
		return nil
	}
	return &TriggerBudget{
		client: client,
		script: redis.NewScript(triggerBudgetScript),
		key:    key,
		rate:   rate,
		burst:  burst,
		ttl:    budgetTTL(rate, burst),
	}
}

// Take spends one token.
func (b *TriggerBudget) Take(ctx context.Context) (*TriggerResult, error) {
	if b == nil {
		return nil, ErrTriggerBudgetDisabled
	}

	res, err := b.script.Run(ctx, b.client, []string{b.key}, b.rate, b.burst, b.ttl.Milliseconds()).Slice()
	if err != nil {
		return nil, fmt.Errorf("trigger budget script: %w", err)
	}
	return parseBudgetReply(res, b.burst)
}

func parseBudgetReply(res []interface{}, burst int) (*TriggerResult, error) {
	if len(res) != 3 {
		return nil, fmt.Errorf("trigger budget reply has %d values", len(res))
	}
	values := make([]int64, len(res))
	for i, v := range res {
		n, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("trigger budget reply value %d is %T", i, v)
		}
		values[i] = n
	}
	return &TriggerResult{
		Allowed:    values[0] == 1,
		Limit:      burst,
		Remaining:  int(values[1]),
		RetryAfter: time.Duration(values[2]) * time.Millisecond,
	}, nil
}

// budgetTTL keeps an idle bucket around for twice the time a full refill
// takes.
func budgetTTL(rate float64, burst int) time.Duration {
	seconds := math.Ceil(float64(burst) / rate * 2)
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second
}
