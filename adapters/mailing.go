// mailing.go
// ----------
// Mailchimp Marketing API. The key carries its datacenter as a suffix ("<key>-us21") and the
// API host is derived from it. Auth is HTTP basic with any username and the key as password.
// Mailchimp caps each key at 10 simultaneous connections; the local budget is per minute.
package adapters

import (
	"strings"
	"time"

	apigateway "github.com/hadivarp/apigateway"
)

const (
	MailchimpDefaultMaxRequests = 600
	MailchimpDefaultWindow      = time.Minute
	mailchimpDefaultDatacenter  = "us1"
)

func mailchimp() Definition {
	return Definition{
		Name:          "mailchimp",
		Category:      "mailing",
		CredentialEnv: []string{"MAILCHIMP_API_KEY"},
		Build: func(env Env) apigateway.ProviderConfig {
			key := env("MAILCHIMP_API_KEY")
			return apigateway.ProviderConfig{
				BaseURL: "https://" + MailchimpDatacenter(key) + ".api.mailchimp.com/3.0",
				Auth: apigateway.AuthConfig{
					Kind:     apigateway.AuthBasic,
					Username: "apigateway",
					Password: key,
				},
				RateLimit:  &apigateway.RateLimitPolicy{MaxRequests: MailchimpDefaultMaxRequests, Window: MailchimpDefaultWindow},
				Timeout:    20 * time.Second,
				MaxRetries: 1,
				CacheTTL:   5 * time.Minute,
			}
		},
	}
}

// MailchimpDatacenter extracts the datacenter from an API key.
func MailchimpDatacenter(key string) string {
	i := strings.LastIndex(key, "-")
	if i < 0 || i == len(key)-1 {
		return mailchimpDefaultDatacenter
	}
	return key[i+1:]
}
