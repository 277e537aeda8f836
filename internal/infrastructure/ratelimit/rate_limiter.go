package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Rule is a token bucket refilled at Rate tokens per second holding at most Burst tokens.
type Rule struct {
	Rate  float64
	Burst int
}

var defaultRule = Rule{Rate: 1.0 / 3, Burst: 20}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one bucket per subject and action, for example a user ID
// and "send_message" or a client address and "auth".
type RateLimiter struct {
	rules    map[string]Rule
	visitors map[string]*visitor
	mutex    sync.Mutex
	idleTTL  time.Duration
	now      func() time.Time
}

func NewRateLimiter(rules map[string]Rule) *RateLimiter {
	if rules == nil {
		rules = map[string]Rule{}
	}
	return &RateLimiter{
		rules:    rules,
		visitors: make(map[string]*visitor),
		idleTTL:  time.Hour,
		now:      time.Now,
	}
}

func (rl *RateLimiter) ruleFor(action string) Rule {
	if rule, ok := rl.rules[action]; ok {
		return rule
	}
	return defaultRule
}

// Allow consumes a token for subject/action. When the bucket is empty it
// reports how long until the next token is available.
func (rl *RateLimiter) Allow(subject, action string) (bool, time.Duration) {
	key := subject + ":" + action
	now := rl.now()

	rl.mutex.Lock()
	v, exists := rl.visitors[key]
	if !exists {
		rule := rl.ruleFor(action)
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(rule.Rate), rule.Burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	rl.mutex.Unlock()

	reservation := v.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, 0
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Tokens returns the tokens currently available for subject/action and the bucket size.
func (rl *RateLimiter) Tokens(subject, action string) (float64, int) {
	rl.mutex.Lock()
	v, exists := rl.visitors[subject+":"+action]
	rl.mutex.Unlock()

	if !exists {
		rule := rl.ruleFor(action)
		return float64(rule.Burst), rule.Burst
	}
	return v.limiter.TokensAt(rl.now()), v.limiter.Burst()
}

// Cleanup drops buckets that have not been used for an hour.
func (rl *RateLimiter) Cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.idleTTL {
			delete(rl.visitors, key)
		}
	}
}

func (rl *RateLimiter) StartCleanupRoutine(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Cleanup()
			}
		}
	}()
}
