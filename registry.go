package apigateway

import "go.uber.org/zap"

// Register validates cfg and stores it under name, replacing any previous config in full.
// A replaced provider keeps its place in the registration order, its rate limit window and
// its usage stats; its cached responses are dropped.
func (g *Gateway) Register(name string, cfg ProviderConfig) error {
	if name == "" {
		return &Error{Kind: KindConfig, Message: "invalid provider configuration", FieldErrors: map[string]string{"Name": "Name is required"}}
	}
	if err := cfg.Validate(name); err != nil {
		return err
	}
	cfg = cfg.clone()
	auth, err := NewAuthenticator(name, cfg.Auth, g.httpClient, g.now)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return newError(KindAPI, name, "gateway closed")
	}
	if _, exists := g.providers[name]; exists {
		g.cache.Clear(name)
	} else {
		g.order = append(g.order, name)
	}
	g.providers[name] = &providerEntry{cfg: cfg, auth: auth}

	g.logger.Info("registered provider",
		zap.String("provider", name),
		zap.String("base_url", cfg.BaseURL),
		zap.String("auth", string(cfg.Auth.kind())),
		zap.Bool("active", cfg.Active()),
	)
	return nil
}

// Unregister removes the provider with its cache entries, rate limit window and usage stats.
// Unknown names are ignored.
func (g *Gateway) Unregister(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.providers[name]; !ok {
		return
	}
	delete(g.providers, name)
	for i, n := range g.order {
		if n == name {
			g.order = append(g.order[:i:i], g.order[i+1:]...)
			break
		}
	}
	g.cache.Clear(name)
	g.rateLimiter.Reset(name)
	g.usage.Remove(name)
	g.metrics.setCacheEntries(g.cache.Stats().Entries)
	g.logger.Info("unregistered provider", zap.String("provider", name))
}

// Provider returns a copy of the provider's config.
func (g *Gateway) Provider(name string) (ProviderConfig, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	entry, ok := g.providers[name]
	if !ok {
		return ProviderConfig{}, false
	}
	return entry.cfg.clone(), true
}

// Providers lists provider names in registration order.
func (g *Gateway) Providers() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.order...)
}

// ActiveProviders lists the providers that accept requests, in registration order.
func (g *Gateway) ActiveProviders() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.order))
	for _, name := range g.order {
		if g.providers[name].cfg.Active() {
			out = append(out, name)
		}
	}
	return out
}
