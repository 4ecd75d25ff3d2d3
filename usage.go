package apigateway

import (
	"sync"
	"time"
)

// UsageStats counts the calls a provider actually served over the network.
// Cache hits and rejected calls are not counted.
type UsageStats struct {
	RequestsMade int64
	LastRequest  time.Time
}

type UsageTracker struct {
	mu    sync.Mutex
	stats map[string]*UsageStats
}

func NewUsageTracker() *UsageTracker {
	return &UsageTracker{stats: make(map[string]*UsageStats)}
}

// Record counts one successful network call made at at.
func (u *UsageTracker) Record(provider string, at time.Time) {
	u.mu.Lock()
	defer u.mu.Unlock()
	st, ok := u.stats[provider]
	if !ok {
		st = &UsageStats{}
		u.stats[provider] = st
	}
	st.RequestsMade++
	if at.After(st.LastRequest) {
		st.LastRequest = at
	}
}

func (u *UsageTracker) Get(provider string) (UsageStats, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	st, ok := u.stats[provider]
	if !ok {
		return UsageStats{}, false
	}
	return *st, true
}

func (u *UsageTracker) Remove(provider string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.stats, provider)
}

func (u *UsageTracker) RemoveAll() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.stats = make(map[string]*UsageStats)
}
