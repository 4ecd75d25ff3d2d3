// request_executor.go
// -------------------
// RequestExecutor performs one logical HTTP call against a provider: it builds the request,
// attaches headers and credentials, and retries only on transport timeouts, waiting
// base * 2^attempt (capped at MaxBackoff) between attempts. Everything else is final:
// connection errors fail at once, and non-2xx statuses are mapped onto the error kinds.
package apigateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hadivarp/apigateway/internal"
)

// Version is reported in the default User-Agent.
const Version = "0.4.0"

type RequestExecutor struct {
	client      Doer
	logger      *zap.Logger
	metrics     *Metrics
	sleep       Sleeper
	now         Clock
	baseBackoff time.Duration
	userAgent   string
}

func NewRequestExecutor(client Doer, logger *zap.Logger) *RequestExecutor {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestExecutor{
		client:      client,
		logger:      logger,
		sleep:       sleepContext,
		now:         time.Now,
		baseBackoff: DefaultBaseBackoff,
		userAgent:   "apigateway/" + Version,
	}
}

// Execute sends req to the provider described by cfg and returns the parsed response.
func (re *RequestExecutor) Execute(ctx context.Context, provider string, cfg ProviderConfig, auth Authenticator, req *Request) (*Response, error) {
	method := req.method()
	if !supportedMethods[method] {
		return nil, newError(KindAPI, provider, "unsupported method %q", req.Method)
	}
	target, err := buildURL(cfg.BaseURL, req)
	if err != nil {
		return nil, wrapError(KindAPI, provider, err, "build url for %q", req.Endpoint)
	}
	body, err := encodeBody(req)
	if err != nil {
		return nil, wrapError(KindAPI, provider, err, "encode request body")
	}
	if auth == nil {
		auth = noAuth{}
	}
	requestID := uuid.NewString()
	log := re.logger.With(
		zap.String("provider", provider),
		zap.String("method", method),
		zap.String("endpoint", req.Endpoint),
		zap.String("request_id", requestID),
	)

	for attempt := 0; ; attempt++ {
		log.Debug("sending request", zap.Int("attempt", attempt+1))
		resp, err := re.send(ctx, provider, cfg, auth, method, target, req.Headers, requestID, body)
		if err == nil {
			resp.Attempts = attempt + 1
			if cerr := classifyStatus(provider, resp, re.now()); cerr != nil {
				log.Warn("request failed", zap.Int("status", resp.StatusCode), zap.Error(cerr))
				return nil, cerr
			}
			if attempt > 0 {
				log.Debug("request succeeded after retries", zap.Int("attempts", attempt+1))
			}
			return resp, nil
		}

		var gwErr *Error
		if errors.As(err, &gwErr) {
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, wrapError(KindAPI, provider, ctxErr, "request cancelled")
		}
		if !isTimeout(err) {
			log.Warn("transport error", zap.Error(err))
			return nil, wrapError(KindAPI, provider, err, "transport error")
		}
		if attempt >= cfg.MaxRetries {
			log.Warn("request timed out, retries exhausted", zap.Int("attempts", attempt+1))
			return nil, wrapError(KindAPI, provider, err, "request timed out after %d attempts", attempt+1)
		}

		wait := calculateBackoff(re.baseBackoff, attempt)
		log.Debug("request timed out, backing off",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", cfg.MaxRetries),
			zap.Duration("backoff", wait),
		)
		re.metrics.incRetries(provider)
		if serr := re.sleep(ctx, wait); serr != nil {
			return nil, wrapError(KindAPI, provider, serr, "request cancelled during backoff")
		}
	}
}

// send performs a single attempt bounded by the provider timeout. The body is read in full
// before the attempt's deadline is released, so a stalled body also counts as a timeout.
func (re *RequestExecutor) send(ctx context.Context, provider string, cfg ProviderConfig, auth Authenticator,
	method, target string, callHeaders map[string]string, requestID string, body []byte) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, cfg.timeout())
	defer cancel()

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(attemptCtx, method, target, rdr)
	if err != nil {
		return nil, wrapError(KindAPI, provider, err, "create request")
	}

	for k, v := range cfg.Headers {
		httpReq.Header.Set(k, v)
	}
	if err := auth.Apply(attemptCtx, httpReq); err != nil {
		var gwErr *Error
		if errors.As(err, &gwErr) || attemptCtx.Err() != nil || isTimeout(err) {
			return nil, err
		}
		return nil, wrapError(KindAuthentication, provider, err, "apply credentials")
	}
	for k, v := range callHeaders {
		httpReq.Header.Set(k, v)
	}
	if httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", re.userAgent)
	}
	if httpReq.Header.Get("X-Request-ID") == "" {
		httpReq.Header.Set("X-Request-ID", requestID)
	}

	httpResp, err := re.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string, len(httpResp.Header))
	for k, v := range httpResp.Header {
		if len(v) > 0 {
			headers[strings.ToLower(k)] = v[0]
		}
	}
	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    headers,
		Data:       parseBody(headers["content-type"], raw),
		Raw:        raw,
		FetchedAt:  re.now(),
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func calculateBackoff(base time.Duration, attempt int) time.Duration {
	if attempt >= 30 {
		return MaxBackoff
	}
	backoff := base * (1 << attempt) // base * 2^attempt
	if backoff > MaxBackoff || backoff <= 0 {
		backoff = MaxBackoff
	}
	return backoff
}

func parseBody(contentType string, raw []byte) any {
	if strings.Contains(strings.ToLower(contentType), "json") && len(bytes.TrimSpace(raw)) > 0 {
		var v any
		if err := json.Unmarshal(raw, &v); err == nil {
			return v
		}
	}
	return string(raw)
}

func classifyStatus(provider string, resp *Response, now time.Time) error {
	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return nil
	}
	e := &Error{Provider: provider, StatusCode: code, Message: errorMessage(resp)}
	switch {
	case code == http.StatusUnauthorized:
		e.Kind = KindAuthentication
	case code == http.StatusTooManyRequests:
		e.Kind = KindRateLimit
		if d, ok := internal.ParseRetryAfter(resp.Headers["retry-after"], now); ok {
			e.RetryAfter = d
		} else if d, ok := internal.ParseResetEpoch(resp.Headers["x-ratelimit-reset"], now); ok {
			e.RetryAfter = d
		}
	case code >= 500:
		e.Kind = KindServiceUnavailable
	default:
		e.Kind = KindAPI
	}
	return e
}

func errorMessage(resp *Response) string {
	switch d := resp.Data.(type) {
	case map[string]any:
		if s, ok := d["message"].(string); ok && s != "" {
			return s
		}
		switch v := d["error"].(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			if s, ok := v["message"].(string); ok && s != "" {
				return s
			}
		}
		if s, ok := d["error_description"].(string); ok && s != "" {
			return s
		}
	case string:
		if s := strings.TrimSpace(d); s != "" && len(s) <= 200 {
			return s
		}
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return fmt.Sprintf("unexpected status %d", resp.StatusCode)
}

func buildURL(base string, req *Request) (string, error) {
	raw := strings.TrimRight(base, "/")
	if ep := strings.TrimLeft(req.Endpoint, "/"); ep != "" {
		raw += "/" + ep
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	if req.paramsInQuery() && req.Body == nil {
		for k, v := range req.Params {
			addQueryValue(q, k, v)
		}
	}
	for k, v := range req.Query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func addQueryValue(q url.Values, key string, v any) {
	switch vv := v.(type) {
	case nil:
	case string:
		q.Add(key, vv)
	case []string:
		for _, s := range vv {
			q.Add(key, s)
		}
	case []any:
		for _, s := range vv {
			q.Add(key, fmt.Sprint(s))
		}
	default:
		q.Add(key, fmt.Sprint(vv))
	}
}

func encodeBody(req *Request) ([]byte, error) {
	switch b := req.Body.(type) {
	case nil:
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		return json.Marshal(b)
	}
	if req.paramsInQuery() || len(req.Params) == 0 {
		return nil, nil
	}
	return json.Marshal(req.Params)
}
