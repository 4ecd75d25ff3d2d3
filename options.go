package apigateway

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures a Gateway at construction.
type Option func(*Gateway)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithHTTPClient sets the client used for provider calls and token endpoints.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) {
		if c != nil {
			g.httpClient = c
		}
	}
}

// WithClock replaces time.Now for the limiter, the cache and usage timestamps.
func WithClock(c Clock) Option {
	return func(g *Gateway) {
		if c != nil {
			g.now = c
		}
	}
}

// WithSleeper replaces the wait between retries.
func WithSleeper(s Sleeper) Option {
	return func(g *Gateway) {
		if s != nil {
			g.sleep = s
		}
	}
}

// WithBaseBackoff sets the unit of the exponential backoff. Defaults to one second.
func WithBaseBackoff(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.baseBackoff = d
		}
	}
}

// WithUserAgent sets the User-Agent sent when a call does not set one.
func WithUserAgent(ua string) Option {
	return func(g *Gateway) {
		if ua != "" {
			g.userAgent = ua
		}
	}
}

// WithMetrics registers the gateway's collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(g *Gateway) {
		if reg != nil {
			g.metrics = NewMetrics(reg)
		}
	}
}

// CallOption adjusts a single call made through Get, Post, Put, Patch or Delete.
type CallOption func(*Request)

func WithHeader(key, value string) CallOption {
	return func(r *Request) {
		if r.Headers == nil {
			r.Headers = make(map[string]string)
		}
		r.Headers[key] = value
	}
}

func WithHeaders(h map[string]string) CallOption {
	return func(r *Request) {
		for k, v := range h {
			WithHeader(k, v)(r)
		}
	}
}

// WithQuery adds an explicit query parameter, also for methods that send Params as the body.
func WithQuery(key, value string) CallOption {
	return func(r *Request) {
		if r.Query == nil {
			r.Query = make(map[string]string)
		}
		r.Query[key] = value
	}
}

// WithoutCache bypasses the response cache for this call.
func WithoutCache() CallOption {
	return func(r *Request) {
		r.NoCache = true
	}
}
