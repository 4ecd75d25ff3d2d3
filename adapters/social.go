package adapters

import (
	"time"

	apigateway "github.com/hadivarp/apigateway"
)

const (
	InstagramDefaultMaxRequests = 200
	InstagramDefaultWindow      = time.Hour
)

// instagram reads a user's media feed through the Instagram Graph API with a long-lived
// access token passed as the access_token query parameter.
func instagram() Definition {
	return Definition{
		Name:          "instagram",
		Category:      "social",
		CredentialEnv: []string{"INSTAGRAM_ACCESS_TOKEN"},
		Build: func(env Env) apigateway.ProviderConfig {
			return apigateway.ProviderConfig{
				BaseURL: "https://graph.instagram.com",
				Auth: apigateway.AuthConfig{
					Kind:       apigateway.AuthAPIKey,
					QueryParam: "access_token",
					APIKey:     env("INSTAGRAM_ACCESS_TOKEN"),
				},
				RateLimit:  &apigateway.RateLimitPolicy{MaxRequests: InstagramDefaultMaxRequests, Window: InstagramDefaultWindow},
				Timeout:    15 * time.Second,
				MaxRetries: 2,
				CacheTTL:   15 * time.Minute,
			}
		},
	}
}
