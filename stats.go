package apigateway

import (
	"time"

	"go.uber.org/zap"
)

// ProviderStats is the observable state of one provider.
type ProviderStats struct {
	Provider     string           `json:"provider"`
	Active       bool             `json:"active"`
	RequestsMade int64            `json:"requests_made"`
	LastRequest  time.Time        `json:"last_request"`
	RateLimit    *RateLimitPolicy `json:"rate_limit,omitempty"`
	WindowCount  int              `json:"window_count"`
	CacheEntries int              `json:"cache_entries"`
}

// Stats reports the provider's usage, limit policy and cache size. ok is false for
// unregistered providers.
func (g *Gateway) Stats(name string) (ProviderStats, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	entry, ok := g.providers[name]
	if !ok {
		return ProviderStats{}, false
	}
	return g.statsLocked(name, entry), true
}

// AllStats reports every registered provider in registration order.
func (g *Gateway) AllStats() []ProviderStats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]ProviderStats, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.statsLocked(name, g.providers[name]))
	}
	return out
}

func (g *Gateway) statsLocked(name string, entry *providerEntry) ProviderStats {
	st := ProviderStats{
		Provider:     name,
		Active:       entry.cfg.Active(),
		CacheEntries: g.cache.Count(name),
	}
	if entry.cfg.RateLimit != nil {
		rl := *entry.cfg.RateLimit
		st.RateLimit = &rl
		if ws, ok := g.rateLimiter.State(name); ok {
			st.WindowCount = ws.Count
		}
	}
	if u, ok := g.usage.Get(name); ok {
		st.RequestsMade = u.RequestsMade
		st.LastRequest = u.LastRequest
	}
	return st
}

// CacheStats summarises the response cache.
func (g *Gateway) CacheStats() CacheStats {
	return g.cache.Stats()
}

// ClearCache drops the cached responses of one provider.
func (g *Gateway) ClearCache(name string) {
	n := g.cache.Clear(name)
	g.metrics.setCacheEntries(g.cache.Stats().Entries)
	g.logger.Debug("cleared cache", zap.String("provider", name), zap.Int("entries", n))
}

// ClearAllCaches drops every cached response.
func (g *Gateway) ClearAllCaches() {
	n := g.cache.ClearAll()
	g.metrics.setCacheEntries(0)
	g.logger.Debug("cleared all caches", zap.Int("entries", n))
}
