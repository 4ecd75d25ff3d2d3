// gateway.go
// ----------
// The gateway.go file contains the Gateway struct, the entry point of the package.
//
// A call made through Gateway.Do runs these steps in order, and stops at the first failure:
//  1. Resolve the provider. It must be registered and active.
//  2. Admit the call through the provider's fixed-window rate limiter.
//  3. Serve a cached response if one is fresh.
//  4. Execute the HTTP call, retrying transport timeouts with exponential backoff.
//  5. Store the response in the cache and count the call in the usage stats.
//
// Rejected calls and cache hits never reach the network and are not counted as usage.
package apigateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

type providerEntry struct {
	cfg  ProviderConfig
	auth Authenticator
}

type Gateway struct {
	mu        sync.RWMutex
	order     []string
	providers map[string]*providerEntry
	closed    bool
	done      chan struct{}
	closeOnce sync.Once

	rateLimiter *RateLimiter
	cache       *ResponseCache
	usage       *UsageTracker
	executor    *RequestExecutor

	logger      *zap.Logger
	httpClient  *http.Client
	metrics     *Metrics
	now         Clock
	sleep       Sleeper
	baseBackoff time.Duration
	userAgent   string
}

// New returns a Gateway with no providers registered.
func New(opts ...Option) *Gateway {
	g := &Gateway{
		providers:   make(map[string]*providerEntry),
		done:        make(chan struct{}),
		logger:      zap.NewNop(),
		httpClient:  &http.Client{},
		now:         time.Now,
		sleep:       sleepContext,
		baseBackoff: DefaultBaseBackoff,
		userAgent:   "apigateway/" + Version,
	}
	for _, opt := range opts {
		opt(g)
	}

	g.rateLimiter = NewRateLimiter(g.now)
	g.cache = NewResponseCache(g.now)
	g.usage = NewUsageTracker()

	ex := NewRequestExecutor(g.httpClient, g.logger)
	ex.sleep = g.sleep
	ex.now = g.now
	ex.baseBackoff = g.baseBackoff
	ex.userAgent = g.userAgent
	ex.metrics = g.metrics
	g.executor = ex
	return g
}

// Do performs req against the named provider.
func (g *Gateway) Do(ctx context.Context, name string, req *Request) (*Response, error) {
	if req == nil {
		req = &Request{}
	}
	entry, err := g.resolve(name)
	if err != nil {
		g.metrics.observeOutcome(g.metricLabel(name), outcomeOf(err))
		return nil, err
	}
	if !supportedMethods[req.method()] {
		err := newError(KindAPI, name, "unsupported method %q", req.Method)
		g.metrics.observeOutcome(name, outcomeOf(err))
		return nil, err
	}

	if err := g.admit(name, entry); err != nil {
		if IsRateLimitError(err) {
			g.logger.Warn("rate limit reached",
				zap.String("provider", name),
				zap.String("endpoint", req.Endpoint),
				zap.Error(err),
			)
		}
		g.metrics.observeOutcome(g.metricLabel(name), outcomeOf(err))
		return nil, err
	}

	cacheable := !req.NoCache && entry.cfg.CacheTTL > 0
	var fp string
	if cacheable {
		fp, err = requestFingerprint(name, req)
		if err != nil {
			err = wrapError(KindAPI, name, err, "fingerprint request")
			g.metrics.observeOutcome(name, outcomeOf(err))
			return nil, err
		}
		if resp, ok := g.cache.Get(name, fp, entry.cfg.CacheTTL); ok {
			g.logger.Debug("cache hit",
				zap.String("provider", name),
				zap.String("endpoint", req.Endpoint),
				zap.String("fingerprint", fp),
			)
			g.metrics.observeOutcome(name, OutcomeCacheHit)
			return resp, nil
		}
	}

	start := time.Now()
	resp, err := g.executor.Execute(ctx, name, entry.cfg, entry.auth, req)
	g.metrics.observeDuration(name, time.Since(start))
	if err != nil {
		g.metrics.observeOutcome(name, outcomeOf(err))
		return nil, err
	}

	g.record(name, entry, fp, cacheable, resp)
	g.metrics.observeOutcome(name, OutcomeSuccess)
	return resp, nil
}

// record stores a successful response, unless the provider was replaced or removed mid-call.
func (g *Gateway) record(name string, entry *providerEntry, fp string, cacheable bool, resp *Response) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.providers[name] != entry {
		return
	}
	if cacheable {
		g.cache.Put(name, fp, resp, entry.cfg.CacheTTL)
		g.metrics.setCacheEntries(g.cache.Stats().Entries)
	}
	g.usage.Record(name, g.now())
}

// admit charges the call to the provider's rate limit window. It holds the read lock so the
// window cannot be recreated for an entry that Unregister or Close has already removed.
func (g *Gateway) admit(name string, entry *providerEntry) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return newError(KindAPI, name, "gateway closed")
	}
	if g.providers[name] != entry {
		return newError(KindAPI, name, "provider %q not registered", name)
	}
	return g.rateLimiter.CheckAndIncrement(name, entry.cfg.RateLimit)
}

// metricLabel keeps the provider label bounded to registered names.
func (g *Gateway) metricLabel(name string) string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if _, ok := g.providers[name]; ok {
		return name
	}
	return unknownProvider
}

func (g *Gateway) resolve(name string) (*providerEntry, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return nil, newError(KindAPI, name, "gateway closed")
	}
	entry, ok := g.providers[name]
	if !ok {
		return nil, newError(KindAPI, name, "provider %q not registered", name)
	}
	if !entry.cfg.Active() {
		return nil, newError(KindAPI, name, "provider %q is disabled", name)
	}
	return entry, nil
}

// requestFingerprint folds explicit query parameters into the fingerprint so that calls
// differing only in Query do not share a cache entry.
func requestFingerprint(name string, req *Request) (string, error) {
	params := req.Params
	if len(req.Query) > 0 {
		params = make(map[string]any, len(req.Params)+1)
		for k, v := range req.Params {
			params[k] = v
		}
		params["$query"] = req.Query
	}
	return Fingerprint(name, req.Endpoint, req.method(), params, req.Body)
}

func (g *Gateway) Get(ctx context.Context, name, endpoint string, params map[string]any, opts ...CallOption) (*Response, error) {
	return g.Do(ctx, name, buildRequest(http.MethodGet, endpoint, params, nil, opts))
}

func (g *Gateway) Post(ctx context.Context, name, endpoint string, body any, opts ...CallOption) (*Response, error) {
	return g.Do(ctx, name, buildRequest(http.MethodPost, endpoint, nil, body, opts))
}

func (g *Gateway) Put(ctx context.Context, name, endpoint string, body any, opts ...CallOption) (*Response, error) {
	return g.Do(ctx, name, buildRequest(http.MethodPut, endpoint, nil, body, opts))
}

func (g *Gateway) Patch(ctx context.Context, name, endpoint string, body any, opts ...CallOption) (*Response, error) {
	return g.Do(ctx, name, buildRequest(http.MethodPatch, endpoint, nil, body, opts))
}

func (g *Gateway) Delete(ctx context.Context, name, endpoint string, params map[string]any, opts ...CallOption) (*Response, error) {
	return g.Do(ctx, name, buildRequest(http.MethodDelete, endpoint, params, nil, opts))
}

func buildRequest(method, endpoint string, params map[string]any, body any, opts []CallOption) *Request {
	req := &Request{Method: method, Endpoint: endpoint, Params: params, Body: body}
	for _, opt := range opts {
		opt(req)
	}
	return req
}

// StartSweeper removes expired cache entries every interval until ctx is done or the
// gateway is closed.
func (g *Gateway) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-g.done:
				return
			case <-ticker.C:
				g.SweepCache()
			}
		}
	}()
}

// SweepCache removes expired cache entries now and returns how many were dropped.
func (g *Gateway) SweepCache() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	removed := g.cache.Sweep(func(provider string) time.Duration {
		if entry, ok := g.providers[provider]; ok {
			return entry.cfg.CacheTTL
		}
		return 0
	})
	if removed > 0 {
		g.logger.Debug("swept cache", zap.Int("removed", removed))
		g.metrics.setCacheEntries(g.cache.Stats().Entries)
	}
	return removed
}

// Close drops all providers and state. Later calls fail with an api_error.
func (g *Gateway) Close() error {
	g.closeOnce.Do(func() {
		g.mu.Lock()
		g.closed = true
		g.providers = make(map[string]*providerEntry)
		g.order = nil
		g.cache.ClearAll()
		g.rateLimiter.ResetAll()
		g.usage.RemoveAll()
		g.mu.Unlock()

		close(g.done)
		g.httpClient.CloseIdleConnections()
		g.metrics.setCacheEntries(0)
	})
	return nil
}
