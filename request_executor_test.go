package apigateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hadivarp/apigateway/mock"
)

func newTestExecutor(client *http.Client, sleeper *recordingSleeper) *RequestExecutor {
	ex := NewRequestExecutor(client, zap.NewNop())
	ex.sleep = sleeper.Sleep
	return ex
}

func TestExecuteRetriesTimeouts(t *testing.T) {
	tests := []struct {
		name         string
		timeouts     int
		maxRetries   int
		wantErr      bool
		wantAttempts int
		wantWaits    []time.Duration
	}{
		{name: "no timeouts", timeouts: 0, maxRetries: 0, wantAttempts: 1},
		{name: "recovers within budget", timeouts: 2, maxRetries: 2, wantAttempts: 3, wantWaits: []time.Duration{time.Second, 2 * time.Second}},
		{name: "recovers with spare retries", timeouts: 1, maxRetries: 3, wantAttempts: 2, wantWaits: []time.Duration{time.Second}},
		{name: "exhausts retries", timeouts: 3, maxRetries: 2, wantErr: true, wantAttempts: 3, wantWaits: []time.Duration{time.Second, 2 * time.Second}},
		{name: "no retries configured", timeouts: 1, maxRetries: 0, wantErr: true, wantAttempts: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var steps []mock.Step
			for i := 0; i < tt.timeouts; i++ {
				steps = append(steps, mock.Timeout())
			}
			steps = append(steps, mock.JSON(http.StatusOK, `{"ok":true}`))
			tr := mock.NewTransport(steps...)
			sleeper := &recordingSleeper{}
			ex := newTestExecutor(tr.Client(), sleeper)

			cfg := ProviderConfig{BaseURL: "https://api.example.com", MaxRetries: tt.maxRetries}
			resp, err := ex.Execute(context.Background(), "demo", cfg, nil, &Request{Endpoint: "ping"})

			assert.Equal(t, tt.wantAttempts, tr.Calls())
			assert.Equal(t, tt.wantWaits, sleeper.Waits())
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, KindAPI, KindOf(err))
				assert.True(t, isTimeout(err), "last timeout is wrapped")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAttempts, resp.Attempts)
			assert.Equal(t, map[string]any{"ok": true}, resp.Data)
		})
	}
}

func TestExecuteBackoffUsesBase(t *testing.T) {
	tr := mock.NewTransport(mock.Timeout(), mock.Timeout(), mock.Timeout(), mock.JSON(200, `{}`))
	sleeper := &recordingSleeper{}
	ex := newTestExecutor(tr.Client(), sleeper)
	ex.baseBackoff = 10 * time.Millisecond

	_, err := ex.Execute(context.Background(), "demo", ProviderConfig{BaseURL: "https://api.example.com", MaxRetries: 3}, nil, &Request{})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}, sleeper.Waits())
}

func TestCalculateBackoff(t *testing.T) {
	assert.Equal(t, time.Second, calculateBackoff(time.Second, 0))
	assert.Equal(t, 8*time.Second, calculateBackoff(time.Second, 3))
	assert.Equal(t, MaxBackoff, calculateBackoff(time.Second, 5))
	assert.Equal(t, MaxBackoff, calculateBackoff(time.Second, 62))
}

func TestExecuteDoesNotRetryTransportErrors(t *testing.T) {
	tr := mock.NewTransport(mock.Fail(errors.New("connection refused")), mock.JSON(200, `{}`))
	sleeper := &recordingSleeper{}
	ex := newTestExecutor(tr.Client(), sleeper)

	_, err := ex.Execute(context.Background(), "demo", ProviderConfig{BaseURL: "https://api.example.com", MaxRetries: 5}, nil, &Request{})
	require.Error(t, err)
	assert.Equal(t, KindAPI, KindOf(err))
	assert.Equal(t, 1, tr.Calls())
	assert.Empty(t, sleeper.Waits())
}

func TestExecuteStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		step       mock.Step
		wantKind   Kind
		wantMsg    string
		wantRetry  time.Duration
		wantStatus int
	}{
		{
			name:       "unauthorized",
			step:       mock.JSON(http.StatusUnauthorized, `{"error":"invalid_token"}`),
			wantKind:   KindAuthentication,
			wantMsg:    "invalid_token",
			wantStatus: 401,
		},
		{
			name: "too many requests",
			step: mock.Step{
				Status: http.StatusTooManyRequests,
				Header: http.Header{"Content-Type": {"application/json"}, "Retry-After": {"7"}},
				Body:   `{"message":"slow down"}`,
			},
			wantKind:   KindRateLimit,
			wantMsg:    "slow down",
			wantRetry:  7 * time.Second,
			wantStatus: 429,
		},
		{
			name:       "service unavailable",
			step:       mock.Text(http.StatusServiceUnavailable, "upstream maintenance"),
			wantKind:   KindServiceUnavailable,
			wantMsg:    "upstream maintenance",
			wantStatus: 503,
		},
		{
			name:       "teapot",
			step:       mock.JSON(http.StatusTeapot, `{"error":{"message":"short and stout"}}`),
			wantKind:   KindAPI,
			wantMsg:    "short and stout",
			wantStatus: 418,
		},
		{
			name:       "not found without body",
			step:       mock.Step{Status: http.StatusNotFound},
			wantKind:   KindAPI,
			wantMsg:    "Not Found",
			wantStatus: 404,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := mock.NewTransport(tt.step)
			ex := newTestExecutor(tr.Client(), &recordingSleeper{})

			_, err := ex.Execute(context.Background(), "demo", ProviderConfig{BaseURL: "https://api.example.com", MaxRetries: 3}, nil, &Request{})
			require.Error(t, err)

			var gwErr *Error
			require.ErrorAs(t, err, &gwErr)
			assert.Equal(t, tt.wantKind, gwErr.Kind)
			assert.Equal(t, tt.wantMsg, gwErr.Message)
			assert.Equal(t, tt.wantStatus, gwErr.StatusCode)
			assert.Equal(t, tt.wantRetry, gwErr.RetryAfter)
			assert.Equal(t, 1, tr.Calls(), "status errors are not retried")
		})
	}
}

func TestExecuteParsesBodies(t *testing.T) {
	tests := []struct {
		name string
		step mock.Step
		want any
	}{
		{"json object", mock.JSON(200, `{"items":[1,2]}`), map[string]any{"items": []any{float64(1), float64(2)}}},
		{"json array", mock.JSON(200, `[{"id":"a"}]`), []any{map[string]any{"id": "a"}}},
		{"vendor json", mock.Step{Status: 200, Header: http.Header{"Content-Type": {"application/vnd.vimeo.video+json"}}, Body: `{"uri":"/videos/1"}`}, map[string]any{"uri": "/videos/1"}},
		{"broken json", mock.JSON(200, `{"items":`), `{"items":`},
		{"plain text", mock.Text(200, "hello"), "hello"},
		{"empty json", mock.JSON(204, ""), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := newTestExecutor(mock.NewTransport(tt.step).Client(), &recordingSleeper{})
			resp, err := ex.Execute(context.Background(), "demo", ProviderConfig{BaseURL: "https://api.example.com"}, nil, &Request{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Data)
		})
	}
}

func TestExecuteHeaderMerge(t *testing.T) {
	tr := mock.NewTransport(mock.Timeout(), mock.JSON(200, `{}`))
	ex := newTestExecutor(tr.Client(), &recordingSleeper{})
	cfg := ProviderConfig{
		BaseURL:    "https://api.example.com",
		MaxRetries: 1,
		Headers: map[string]string{
			"X-Env":         "prod",
			"Accept":        "application/json",
			"Authorization": "Token default",
		},
	}
	auth := bearerAuth{token: "secret"}

	_, err := ex.Execute(context.Background(), "demo", cfg, auth, &Request{Headers: map[string]string{"X-Env": "test"}})
	require.NoError(t, err)

	reqs := tr.Requests()
	require.Len(t, reqs, 2)
	h := reqs[1].Header
	assert.Equal(t, "Bearer secret", h.Get("Authorization"), "auth wins over defaults")
	assert.Equal(t, "test", h.Get("X-Env"), "per-call wins over defaults")
	assert.Equal(t, "application/json", h.Get("Accept"))
	assert.Equal(t, "application/json", h.Get("Content-Type"))
	assert.Equal(t, "apigateway/"+Version, h.Get("User-Agent"))
	assert.NotEmpty(t, h.Get("X-Request-ID"))
	assert.Equal(t, reqs[0].Header.Get("X-Request-ID"), h.Get("X-Request-ID"), "retries reuse the request id")

	_, err = ex.Execute(context.Background(), "demo", cfg, auth, &Request{Headers: map[string]string{
		"Authorization": "Bearer override",
		"Content-Type":  "text/csv",
		"User-Agent":    "site-builder/2.0",
	}})
	require.NoError(t, err)
	last, _ := tr.Last()
	assert.Equal(t, "Bearer override", last.Header.Get("Authorization"), "per-call wins over auth")
	assert.Equal(t, "text/csv", last.Header.Get("Content-Type"))
	assert.Equal(t, "site-builder/2.0", last.Header.Get("User-Agent"))
}

func TestExecuteParamsPlacement(t *testing.T) {
	tr := mock.NewTransport(mock.JSON(200, `{}`))
	ex := newTestExecutor(tr.Client(), &recordingSleeper{})
	cfg := ProviderConfig{BaseURL: "https://api.example.com/v1/"}
	params := map[string]any{"query": "cats", "per_page": 5, "tags": []string{"a", "b"}}

	_, err := ex.Execute(context.Background(), "demo", cfg, nil, &Request{Method: "get", Endpoint: "/search", Params: params})
	require.NoError(t, err)
	last, _ := tr.Last()
	u, err := url.Parse(last.URL)
	require.NoError(t, err)
	assert.Equal(t, "/v1/search", u.Path)
	assert.Equal(t, "cats", u.Query().Get("query"))
	assert.Equal(t, "5", u.Query().Get("per_page"))
	assert.Equal(t, []string{"a", "b"}, u.Query()["tags"])
	assert.Empty(t, last.Body)

	_, err = ex.Execute(context.Background(), "demo", cfg, nil, &Request{
		Method:   http.MethodPost,
		Endpoint: "lists/abc/members",
		Params:   map[string]any{"email_address": "a@example.com", "status": "subscribed"},
		Query:    map[string]string{"skip_merge_validation": "true"},
	})
	require.NoError(t, err)
	last, _ = tr.Last()
	assert.Equal(t, http.MethodPost, last.Method)
	assert.JSONEq(t, `{"email_address":"a@example.com","status":"subscribed"}`, string(last.Body))
	assert.Contains(t, last.URL, "skip_merge_validation=true")

	_, err = ex.Execute(context.Background(), "demo", cfg, nil, &Request{Method: http.MethodPut, Body: "raw=payload"})
	require.NoError(t, err)
	last, _ = tr.Last()
	assert.Equal(t, "raw=payload", string(last.Body))
}

func TestExecuteRejectsUnsupportedMethod(t *testing.T) {
	tr := mock.NewTransport()
	ex := newTestExecutor(tr.Client(), &recordingSleeper{})
	_, err := ex.Execute(context.Background(), "demo", ProviderConfig{BaseURL: "https://api.example.com"}, nil, &Request{Method: "TRACE"})
	require.Error(t, err)
	assert.Equal(t, KindAPI, KindOf(err))
	assert.Equal(t, 0, tr.Calls())
}

func TestExecuteHonoursCancellation(t *testing.T) {
	tr := mock.NewTransport(mock.JSON(200, `{}`))
	ex := newTestExecutor(tr.Client(), &recordingSleeper{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ex.Execute(ctx, "demo", ProviderConfig{BaseURL: "https://api.example.com", MaxRetries: 3}, nil, &Request{})
	require.Error(t, err)
	assert.Equal(t, KindAPI, KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecuteRealTimeout(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	sleeper := &recordingSleeper{}
	ex := newTestExecutor(srv.Client(), sleeper)
	cfg := ProviderConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond, MaxRetries: 2}

	resp, err := ex.Execute(context.Background(), "slow", cfg, nil, &Request{Endpoint: "status"})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Attempts)
	assert.Equal(t, map[string]any{"status": "ok"}, resp.Data)
	assert.Len(t, sleeper.Waits(), 2)
}
