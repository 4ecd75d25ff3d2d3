package apigateway

import (
	"context"
	"net/http"
	"time"
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Authenticator attaches a provider's credentials to an outgoing request.
// It is called once per attempt; implementations that fetch tokens cache them.
type Authenticator interface {
	Apply(ctx context.Context, req *http.Request) error
}

// Clock returns the current time. Tests inject fixed or stepping clocks.
type Clock func() time.Time

// Sleeper waits for d or until ctx is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
