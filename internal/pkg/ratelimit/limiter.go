// Package ratelimit throttles requests per action and client with fixed windows
// that start at the first hit.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Result is the outcome of one Check.
type Result struct {
	Allowed     bool
	Remaining   int64
	CurrentHits int64
	// RetryAfter is the action's full window when throttled.
	RetryAfter time.Duration
}

// Store counts hits for a key inside a window that starts at the key's first hit.
type Store interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Limiter applies per-action policies on top of a Store.
type Limiter struct {
	store    Store
	policies Policies
	prefix   string
}

func New(store Store, policies Policies) *Limiter {
	if policies == nil {
		policies = DefaultPolicies()
	}
	return &Limiter{store: store, policies: policies, prefix: "rl:"}
}

// Policy returns the budget configured for action.
func (l *Limiter) Policy(action string) (Policy, bool) {
	p, ok := l.policies[action]
	return p, ok
}

// Check counts one request of action from clientKey.
func (l *Limiter) Check(ctx context.Context, action, clientKey string) (Result, error) {
	p, ok := l.policies[action]
	if !ok {
		return Result{}, fmt.Errorf("no rate limit policy for action %q", action)
	}

	hits, err := l.store.Hit(ctx, l.prefix+action+":"+clientKey, p.Window)
	if err != nil {
		return Result{}, err
	}

	max := int64(p.Points)
	res := Result{
		Allowed:     hits <= max,
		CurrentHits: hits,
		Remaining:   max - hits,
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if !res.Allowed {
		res.RetryAfter = p.Window
	}
	return res, nil
}
