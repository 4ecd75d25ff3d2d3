// images.go
// ---------
// Stock image search providers.
//
// Key Points:
//   - Unsplash authenticates with "Authorization: Client-ID <access key>" and allows 50 requests/hour
//     for demo applications.
//   - Pexels takes the raw key in the Authorization header, 200 requests/hour.
//   - Pixabay takes the key as a "key" query parameter, 100 requests per 60 seconds, and asks
//     clients to cache results for 24 hours.
package adapters

import (
	"time"

	apigateway "github.com/hadivarp/apigateway"
)

const (
	UnsplashDefaultMaxRequests = 50
	UnsplashDefaultWindow      = time.Hour

	PexelsDefaultMaxRequests = 200
	PexelsDefaultWindow      = time.Hour

	PixabayDefaultMaxRequests = 100
	PixabayDefaultWindow      = time.Minute
)

func unsplash() Definition {
	return Definition{
		Name:          "unsplash",
		Category:      "images",
		CredentialEnv: []string{"UNSPLASH_ACCESS_KEY"},
		Build: func(env Env) apigateway.ProviderConfig {
			return apigateway.ProviderConfig{
				BaseURL: "https://api.unsplash.com",
				Auth: apigateway.AuthConfig{
					Kind:   apigateway.AuthAPIKey,
					Header: "Authorization",
					APIKey: "Client-ID " + env("UNSPLASH_ACCESS_KEY"),
				},
				RateLimit:  &apigateway.RateLimitPolicy{MaxRequests: UnsplashDefaultMaxRequests, Window: UnsplashDefaultWindow},
				Timeout:    10 * time.Second,
				MaxRetries: 2,
				Headers:    map[string]string{"Accept-Version": "v1"},
				CacheTTL:   time.Hour,
			}
		},
	}
}

func pexels() Definition {
	return Definition{
		Name:          "pexels",
		Category:      "images",
		CredentialEnv: []string{"PEXELS_API_KEY"},
		Build: func(env Env) apigateway.ProviderConfig {
			return apigateway.ProviderConfig{
				BaseURL: "https://api.pexels.com/v1",
				Auth: apigateway.AuthConfig{
					Kind:   apigateway.AuthAPIKey,
					Header: "Authorization",
					APIKey: env("PEXELS_API_KEY"),
				},
				RateLimit:  &apigateway.RateLimitPolicy{MaxRequests: PexelsDefaultMaxRequests, Window: PexelsDefaultWindow},
				Timeout:    10 * time.Second,
				MaxRetries: 2,
				CacheTTL:   time.Hour,
			}
		},
	}
}

func pixabay() Definition {
	return Definition{
		Name:          "pixabay",
		Category:      "images",
		CredentialEnv: []string{"PIXABAY_API_KEY"},
		Build: func(env Env) apigateway.ProviderConfig {
			return apigateway.ProviderConfig{
				BaseURL: "https://pixabay.com/api",
				Auth: apigateway.AuthConfig{
					Kind:       apigateway.AuthAPIKey,
					QueryParam: "key",
					APIKey:     env("PIXABAY_API_KEY"),
				},
				RateLimit:  &apigateway.RateLimitPolicy{MaxRequests: PixabayDefaultMaxRequests, Window: PixabayDefaultWindow},
				Timeout:    10 * time.Second,
				MaxRetries: 2,
				CacheTTL:   24 * time.Hour,
			}
		},
	}
}
