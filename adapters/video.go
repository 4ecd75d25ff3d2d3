// video.go
// --------
// Video search providers. YouTube Data API quota is 10000 units/day; a search costs 100 units,
// so the local budget counts requests conservatively. Vimeo documents per-user limits that
// vary by plan; 600 per 10 minutes stays under the lowest tier.
package adapters

import (
	"time"

	apigateway "github.com/hadivarp/apigateway"
)

const (
	YouTubeDefaultMaxRequests = 100
	YouTubeDefaultWindow      = 24 * time.Hour

	VimeoDefaultMaxRequests = 600
	VimeoDefaultWindow      = 10 * time.Minute
)

func youtube() Definition {
	return Definition{
		Name:          "youtube",
		Category:      "video",
		CredentialEnv: []string{"YOUTUBE_API_KEY"},
		Build: func(env Env) apigateway.ProviderConfig {
			return apigateway.ProviderConfig{
				BaseURL: "https://www.googleapis.com/youtube/v3",
				Auth: apigateway.AuthConfig{
					Kind:       apigateway.AuthAPIKey,
					QueryParam: "key",
					APIKey:     env("YOUTUBE_API_KEY"),
				},
				RateLimit:  &apigateway.RateLimitPolicy{MaxRequests: YouTubeDefaultMaxRequests, Window: YouTubeDefaultWindow},
				Timeout:    15 * time.Second,
				MaxRetries: 2,
				CacheTTL:   6 * time.Hour,
			}
		},
	}
}

func vimeo() Definition {
	return Definition{
		Name:          "vimeo",
		Category:      "video",
		CredentialEnv: []string{"VIMEO_ACCESS_TOKEN"},
		Build: func(env Env) apigateway.ProviderConfig {
			return apigateway.ProviderConfig{
				BaseURL: "https://api.vimeo.com",
				Auth: apigateway.AuthConfig{
					Kind:  apigateway.AuthBearer,
					Token: env("VIMEO_ACCESS_TOKEN"),
				},
				RateLimit:  &apigateway.RateLimitPolicy{MaxRequests: VimeoDefaultMaxRequests, Window: VimeoDefaultWindow},
				Timeout:    15 * time.Second,
				MaxRetries: 2,
				Headers:    map[string]string{"Accept": "application/vnd.vimeo.*+json;version=3.4"},
				CacheTTL:   time.Hour,
			}
		},
	}
}
