package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "impex:rl:"

// Limiter is a sliding window rate limiter over a Redis sorted set.
// Each request adds a member scored by its arrival time; members older
// than the window are pruned on every check.
type Limiter struct {
	Client *redis.Client
	Prefix string
}

// Decision reports the outcome of a single rate limit check.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Check records a hit for key and returns whether it stays within max
// hits per window. A nil client or non-positive limit always allows.
func (l Limiter) Check(ctx context.Context, key string, window time.Duration, max int) (Decision, error) {
	now := time.Now()
	open := Decision{Allowed: true, Remaining: max, ResetAt: now.Add(window)}
	if l.Client == nil || max <= 0 || window <= 0 {
		return open, nil
	}

	prefix := l.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	redisKey := prefix + key
	cutoff := float64(now.Add(-window).UnixNano())

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("%f", cutoff))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{ResetAt: open.ResetAt}, err
	}

	hits := int(countCmd.Val())
	remaining := max - hits
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   hits <= max,
		Remaining: remaining,
		ResetAt:   open.ResetAt,
	}, nil
}
