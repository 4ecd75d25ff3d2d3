// cache.go
// --------
// ResponseCache holds successful responses keyed by provider and request fingerprint.
//
// Expiry is lazy: an entry older than the provider's TTL is dropped when it is looked up.
// Sweep removes expired entries eagerly and is what the gateway's background sweeper calls.
// There is no size bound.
package apigateway

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// CacheEntry is a stored response and when it was stored.
type CacheEntry struct {
	Response *Response
	StoredAt time.Time
}

// CacheStats summarises the cache across all providers.
type CacheStats struct {
	Entries     int `json:"entries"`
	Providers   int `json:"providers"`
	ApproxBytes int `json:"approx_bytes"`
}

type ResponseCache struct {
	mu      sync.RWMutex
	entries map[string]map[string]*CacheEntry
	now     Clock
}

func NewResponseCache(clock Clock) *ResponseCache {
	if clock == nil {
		clock = time.Now
	}
	return &ResponseCache{
		entries: make(map[string]map[string]*CacheEntry),
		now:     clock,
	}
}

type fingerprintInput struct {
	Provider string          `json:"provider"`
	Endpoint string          `json:"endpoint"`
	Method   string          `json:"method"`
	Params   map[string]any  `json:"params"`
	Body     json.RawMessage `json:"body"`
	// RawBody marks Body as the base64 of a []byte body, so it never equals a JSON body.
	RawBody bool `json:"raw_body,omitempty"`
}

// Fingerprint hashes the identity of a request. Map keys are encoded in sorted order,
// so two requests that differ only in parameter insertion order share a fingerprint.
func Fingerprint(provider, endpoint, method string, params map[string]any, body any) (string, error) {
	encodedBody, rawBody, err := canonicalBody(body)
	if err != nil {
		return "", fmt.Errorf("fingerprint body: %w", err)
	}
	in := fingerprintInput{
		Provider: provider,
		Endpoint: endpoint,
		Method:   strings.ToUpper(method),
		Params:   params,
		Body:     encodedBody,
		RawBody:  rawBody,
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("fingerprint params: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// canonicalBody encodes []byte bodies byte for byte (base64), everything else as JSON.
func canonicalBody(body any) (json.RawMessage, bool, error) {
	switch b := body.(type) {
	case nil:
		return json.RawMessage("null"), false, nil
	case []byte:
		enc, err := json.Marshal(b)
		return enc, true, err
	default:
		enc, err := json.Marshal(b)
		return enc, false, err
	}
}

// Get returns a copy of the cached response if it is younger than ttl.
func (c *ResponseCache) Get(provider, fingerprint string, ttl time.Duration) (*Response, bool) {
	if ttl <= 0 {
		return nil, false
	}

	c.mu.RLock()
	entry, ok := c.entries[provider][fingerprint]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if c.now().Sub(entry.StoredAt) >= ttl {
		c.mu.Lock()
		// Another writer may have replaced the entry since the read.
		if cur, ok := c.entries[provider][fingerprint]; ok && cur == entry {
			c.deleteLocked(provider, fingerprint)
		}
		c.mu.Unlock()
		return nil, false
	}

	resp := entry.Response.clone()
	resp.FromCache = true
	return resp, true
}

// Put stores resp, replacing any previous entry. A non-positive ttl stores nothing.
func (c *ResponseCache) Put(provider, fingerprint string, resp *Response, ttl time.Duration) {
	if ttl <= 0 || resp == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	bucket, ok := c.entries[provider]
	if !ok {
		bucket = make(map[string]*CacheEntry)
		c.entries[provider] = bucket
	}
	stored := resp.clone()
	stored.FromCache = false
	bucket[fingerprint] = &CacheEntry{Response: stored, StoredAt: c.now()}
}

// Clear drops every entry of provider and returns how many were removed.
func (c *ResponseCache) Clear(provider string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries[provider])
	delete(c.entries, provider)
	return n
}

func (c *ResponseCache) ClearAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, bucket := range c.entries {
		n += len(bucket)
	}
	c.entries = make(map[string]map[string]*CacheEntry)
	return n
}

// Count returns the number of entries held for provider, expired ones included.
func (c *ResponseCache) Count(provider string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries[provider])
}

// Sweep removes entries older than ttlFor(provider) and returns how many were removed.
func (c *ResponseCache) Sweep(ttlFor func(provider string) time.Duration) int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for provider, bucket := range c.entries {
		ttl := ttlFor(provider)
		for fp, entry := range bucket {
			if ttl <= 0 || now.Sub(entry.StoredAt) >= ttl {
				delete(bucket, fp)
				removed++
			}
		}
		if len(bucket) == 0 {
			delete(c.entries, provider)
		}
	}
	return removed
}

func (c *ResponseCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var st CacheStats
	for _, bucket := range c.entries {
		if len(bucket) == 0 {
			continue
		}
		st.Providers++
		st.Entries += len(bucket)
		for fp, entry := range bucket {
			st.ApproxBytes += len(fp) + entry.Response.size()
		}
	}
	return st
}

func (c *ResponseCache) deleteLocked(provider, fingerprint string) {
	bucket := c.entries[provider]
	delete(bucket, fingerprint)
	if len(bucket) == 0 {
		delete(c.entries, provider)
	}
}
