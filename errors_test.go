package apigateway

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindsMatchSentinels(t *testing.T) {
	tests := []struct {
		kind     Kind
		sentinel error
	}{
		{KindConfig, ErrConfig},
		{KindAuthentication, ErrAuthentication},
		{KindRateLimit, ErrRateLimited},
		{KindServiceUnavailable, ErrServiceUnavailable},
		{KindAPI, ErrAPI},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := fmt.Errorf("call: %w", newError(tt.kind, "p", "boom"))
			assert.ErrorIs(t, err, tt.sentinel)
			assert.ErrorIs(t, err, ErrAPI, "every kind is an api error")
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}
}

func TestErrorKindsDoNotCrossMatch(t *testing.T) {
	err := newError(KindAPI, "p", "generic")
	assert.False(t, IsRateLimitError(err))
	assert.False(t, IsConfigError(err))
	assert.False(t, IsAuthenticationError(err))
	assert.False(t, IsServiceUnavailableError(err))

	rl := newError(KindRateLimit, "p", "slow down")
	assert.False(t, errors.Is(rl, ErrServiceUnavailable))
}

func TestErrorMessageAndRetryAfter(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := wrapError(KindAPI, "unsplash", cause, "transport error")
	assert.Equal(t, "api_error [unsplash]: transport error: dial tcp: refused", err.Error())
	assert.ErrorIs(t, err, cause)

	rl := &Error{Kind: KindRateLimit, Provider: "p", StatusCode: 429, Message: "slow", RetryAfter: 3 * time.Second}
	d, ok := RetryAfterOf(rl)
	assert.True(t, ok)
	assert.Equal(t, 3*time.Second, d)
	assert.Contains(t, rl.Error(), "(status 429)")

	_, ok = RetryAfterOf(err)
	assert.False(t, ok)
	assert.Equal(t, Kind(""), KindOf(cause))
}
