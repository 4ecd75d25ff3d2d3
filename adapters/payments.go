// payments.go
// -----------
// Stripe allows 100 read and 100 write operations per second in live mode. Payment calls are
// never cached and never retried: a timed out charge may still have gone through.
package adapters

import (
	"time"

	apigateway "github.com/hadivarp/apigateway"
)

const (
	StripeDefaultMaxRequests = 100
	StripeDefaultWindow      = time.Second
	StripeAPIVersion         = "2024-06-20"
)

func stripe() Definition {
	return Definition{
		Name:          "stripe",
		Category:      "payments",
		CredentialEnv: []string{"STRIPE_SECRET_KEY"},
		Build: func(env Env) apigateway.ProviderConfig {
			return apigateway.ProviderConfig{
				BaseURL: "https://api.stripe.com/v1",
				Auth: apigateway.AuthConfig{
					Kind:  apigateway.AuthBearer,
					Token: env("STRIPE_SECRET_KEY"),
				},
				RateLimit: &apigateway.RateLimitPolicy{MaxRequests: StripeDefaultMaxRequests, Window: StripeDefaultWindow},
				Timeout:   30 * time.Second,
				Headers:   map[string]string{"Stripe-Version": StripeAPIVersion},
			}
		},
	}
}
