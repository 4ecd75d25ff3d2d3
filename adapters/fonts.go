package adapters

import (
	"time"

	apigateway "github.com/hadivarp/apigateway"
)

// The Google Fonts catalog changes rarely, so it is cached for a day and has no local limit.
func googleFonts() Definition {
	return Definition{
		Name:          "google_fonts",
		Category:      "fonts",
		CredentialEnv: []string{"GOOGLE_FONTS_API_KEY"},
		Build: func(env Env) apigateway.ProviderConfig {
			return apigateway.ProviderConfig{
				BaseURL: "https://www.googleapis.com/webfonts/v1",
				Auth: apigateway.AuthConfig{
					Kind:       apigateway.AuthAPIKey,
					QueryParam: "key",
					APIKey:     env("GOOGLE_FONTS_API_KEY"),
				},
				Timeout:    20 * time.Second,
				MaxRetries: 3,
				CacheTTL:   24 * time.Hour,
			}
		},
	}
}
