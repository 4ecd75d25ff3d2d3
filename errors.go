// errors.go
// ---------
// Every failure surfaced by the gateway is an *Error with a Kind. The kinds form a flat
// hierarchy under a single base: errors.Is(err, ErrAPI) holds for all of them, while
// errors.Is(err, ErrRateLimited) and friends match only their own kind.
package apigateway

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind classifies a gateway error.
type Kind string

const (
	KindAPI                Kind = "api_error"
	KindConfig             Kind = "config_error"
	KindAuthentication     Kind = "authentication_error"
	KindRateLimit          Kind = "rate_limit_error"
	KindServiceUnavailable Kind = "service_unavailable"
)

// Sentinels for errors.Is.
var (
	ErrAPI                = &Error{Kind: KindAPI, Message: "api error"}
	ErrConfig             = &Error{Kind: KindConfig, Message: "invalid provider configuration"}
	ErrAuthentication     = &Error{Kind: KindAuthentication, Message: "authentication failed"}
	ErrRateLimited        = &Error{Kind: KindRateLimit, Message: "rate limit exceeded"}
	ErrServiceUnavailable = &Error{Kind: KindServiceUnavailable, Message: "service unavailable"}
)

// Error is the single error type returned by the gateway.
type Error struct {
	Kind     Kind
	Provider string
	// StatusCode is the upstream HTTP status, zero when no response was received.
	StatusCode int
	Message    string
	// RetryAfter is set on rate limit errors: the time until the local window resets,
	// or the upstream Retry-After hint.
	RetryAfter time.Duration
	// FieldErrors holds per-field messages for configuration errors.
	FieldErrors map[string]string
	Err         error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Provider != "" {
		fmt.Fprintf(&b, " [%s]", e.Provider)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.FieldErrors) > 0 {
		fields := make([]string, 0, len(e.FieldErrors))
		for _, msg := range e.FieldErrors {
			fields = append(fields, msg)
		}
		sort.Strings(fields)
		b.WriteString(": ")
		b.WriteString(strings.Join(fields, "; "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind. ErrAPI is the base of every kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == KindAPI {
		return true
	}
	return t.Kind == e.Kind
}

func newError(kind Kind, provider, format string, args ...any) *Error {
	return &Error{Kind: kind, Provider: provider, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, provider string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Provider: provider, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of a gateway error, or "" for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfig)
}

func IsAuthenticationError(err error) bool {
	return errors.Is(err, ErrAuthentication)
}

func IsRateLimitError(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

func IsServiceUnavailableError(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}

// RetryAfterOf returns the retry hint carried by a rate limit error.
func RetryAfterOf(err error) (time.Duration, bool) {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindRateLimit {
		return e.RetryAfter, true
	}
	return 0, false
}
