// Package ratelimit caps how often one client may submit reports, using a
// fixed-window counter kept in Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Counter is the storage the limiter needs. RedisCounter implements it.
type Counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
}

type Rule struct {
	Limit  int64
	Window time.Duration
}

type Limiter struct {
	counter Counter
	rules   map[string]Rule
	now     func() time.Time
}

type CheckResult struct {
	Allowed   bool  `json:"allowed"`
	Remaining int64 `json:"remaining"`
	ResetAt   int64 `json:"reset_at"`
	Limit     int64 `json:"limit"`
}

// Action names used with Check.
const (
	ActionSubmit = "submit"
)

func NewLimiter(counter Counter, rules map[string]Rule) *Limiter {
	return &Limiter{counter: counter, rules: rules, now: time.Now}
}

func (l *Limiter) Check(ctx context.Context, clientID, action string) (*CheckResult, error) {
	rule, ok := l.rules[action]
	if !ok {
		// Default limit for unknown actions
		rule = Rule{Limit: 100, Window: time.Minute}
	}

	key := fmt.Sprintf("pawwatch:rate:%s:%s", action, clientID)

	count, err := l.counter.Incr(ctx, key, rule.Window)
	if err != nil {
		return nil, fmt.Errorf("failed to increment counter: %w", err)
	}

	ttl, err := l.counter.TTL(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get TTL: %w", err)
	}
	if ttl <= 0 {
		ttl = rule.Window
	}

	remaining := rule.Limit - count
	if remaining < 0 {
		remaining = 0
	}

	return &CheckResult{
		Allowed:   count <= rule.Limit,
		Remaining: remaining,
		ResetAt:   l.now().Add(ttl).Unix(),
		Limit:     rule.Limit,
	}, nil
}
