// rate_limiter.go
// ----------------
// This file defines the RateLimiter type, which enforces a fixed-window request budget per provider.
//
// Responsibilities:
// - Storing the window start and request count per provider.
// - Restarting the window once now - start >= window.
// - Rejecting a call when the window's budget is spent, reporting how long until it resets.
//
// Check and increment happen under one lock, so concurrent callers can never overshoot the budget.
package apigateway

import (
	"sync"
	"time"
)

// RateLimitState is the window a provider is currently counting in.
type RateLimitState struct {
	WindowStart time.Time
	Count       int
}

type RateLimiter struct {
	mu     sync.Mutex
	states map[string]*RateLimitState
	now    Clock
}

func NewRateLimiter(clock Clock) *RateLimiter {
	if clock == nil {
		clock = time.Now
	}
	return &RateLimiter{
		states: make(map[string]*RateLimitState),
		now:    clock,
	}
}

// CheckAndIncrement admits one call for provider under policy, or fails with a rate_limit_error
// without counting the call. A nil policy always admits.
func (r *RateLimiter) CheckAndIncrement(provider string, policy *RateLimitPolicy) error {
	if policy == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	st, ok := r.states[provider]
	if !ok {
		st = &RateLimitState{WindowStart: now}
		r.states[provider] = st
	}
	if now.Sub(st.WindowStart) >= policy.Window {
		st.WindowStart = now
		st.Count = 0
	}
	if st.Count >= policy.MaxRequests {
		err := newError(KindRateLimit, provider, "limit of %d requests per %s reached", policy.MaxRequests, policy.Window)
		err.RetryAfter = st.WindowStart.Add(policy.Window).Sub(now)
		return err
	}
	st.Count++
	return nil
}

// State returns a copy of the provider's current window, if one has been opened.
func (r *RateLimiter) State(provider string) (RateLimitState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[provider]
	if !ok {
		return RateLimitState{}, false
	}
	return *st, true
}

// Reset forgets the provider's window.
func (r *RateLimiter) Reset(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, provider)
}

func (r *RateLimiter) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = make(map[string]*RateLimitState)
}
