// config.go
// ----------
// This file defines ProviderConfig, the per-provider settings the gateway works from:
// where the provider lives, how to authenticate, how many calls a window allows,
// how long to wait for each attempt, how often to retry timeouts and how long to cache.
//
// Configs are validated on registration. A failure is reported as a config_error carrying
// one message per offending field.
package apigateway

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultBaseBackoff = time.Second
	MaxBackoff         = 30 * time.Second
	DefaultAPIKeyHdr   = "X-API-Key"
)

// AuthKind selects how credentials are attached to outgoing requests.
type AuthKind string

const (
	AuthNone   AuthKind = "none"
	AuthBearer AuthKind = "bearer"
	AuthAPIKey AuthKind = "api_key"
	AuthBasic  AuthKind = "basic"
	AuthOAuth2 AuthKind = "oauth2"
	AuthJWT    AuthKind = "jwt"
)

// AuthConfig describes the credentials of a provider. Only the fields of the chosen Kind are read.
type AuthConfig struct {
	Kind AuthKind `mapstructure:"kind" validate:"omitempty,oneof=none bearer api_key basic oauth2 jwt"`

	// bearer
	Token string `mapstructure:"token" validate:"required_if=Kind bearer"`

	// api_key: sent in Header (default X-API-Key), or as a query parameter when QueryParam is set.
	APIKey     string `mapstructure:"api_key" validate:"required_if=Kind api_key"`
	Header     string `mapstructure:"header"`
	QueryParam string `mapstructure:"query_param"`

	// basic
	Username string `mapstructure:"username" validate:"required_if=Kind basic"`
	Password string `mapstructure:"password"`

	// oauth2 client credentials
	ClientID     string   `mapstructure:"client_id" validate:"required_if=Kind oauth2"`
	ClientSecret string   `mapstructure:"client_secret" validate:"required_if=Kind oauth2"`
	TokenURL     string   `mapstructure:"token_url" validate:"required_if=Kind oauth2"`
	Scopes       []string `mapstructure:"scopes"`

	// jwt: HS256 signs with Secret, RS256 with PrivateKeyPEM or a PKCS#12 bundle.
	SigningMethod  string        `mapstructure:"signing_method" validate:"omitempty,oneof=HS256 RS256"`
	Secret         string        `mapstructure:"secret"`
	PrivateKeyPEM  string        `mapstructure:"private_key_pem"`
	PKCS12File     string        `mapstructure:"pkcs12_file"`
	PKCS12Password string        `mapstructure:"pkcs12_password"`
	Issuer         string        `mapstructure:"issuer"`
	Subject        string        `mapstructure:"subject"`
	Audience       string        `mapstructure:"audience"`
	TokenTTL       time.Duration `mapstructure:"token_ttl" validate:"gte=0"`
}

func (a AuthConfig) kind() AuthKind {
	if a.Kind == "" {
		return AuthNone
	}
	return a.Kind
}

// RateLimitPolicy bounds a provider to MaxRequests per fixed Window.
type RateLimitPolicy struct {
	MaxRequests int           `mapstructure:"max_requests" validate:"gt=0"`
	Window      time.Duration `mapstructure:"window" validate:"gt=0"`
}

// ProviderConfig allows per-provider customization of auth, limits, retries and caching.
type ProviderConfig struct {
	BaseURL   string           `mapstructure:"base_url" validate:"required"`
	Auth      AuthConfig       `mapstructure:"auth"`
	RateLimit *RateLimitPolicy `mapstructure:"rate_limit"`

	Timeout    time.Duration     `mapstructure:"timeout" validate:"gte=0"`     // per attempt, DefaultTimeout when zero
	MaxRetries int               `mapstructure:"max_retries" validate:"gte=0"` // extra attempts after a timeout
	Headers    map[string]string `mapstructure:"headers"`
	CacheTTL   time.Duration     `mapstructure:"cache_ttl" validate:"gte=0"` // zero disables caching
	Disabled   bool              `mapstructure:"disabled"`
}

// Active reports whether the provider accepts requests.
func (c ProviderConfig) Active() bool {
	return !c.Disabled
}

func (c ProviderConfig) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

func (c ProviderConfig) clone() ProviderConfig {
	out := c
	if c.Headers != nil {
		out.Headers = make(map[string]string, len(c.Headers))
		for k, v := range c.Headers {
			out.Headers[k] = v
		}
	}
	if c.RateLimit != nil {
		rl := *c.RateLimit
		out.RateLimit = &rl
	}
	if c.Auth.Scopes != nil {
		out.Auth.Scopes = append([]string(nil), c.Auth.Scopes...)
	}
	return out
}

var validate = validator.New()

// Validate checks the config and returns a config_error naming every invalid field.
func (c ProviderConfig) Validate(provider string) error {
	fields := make(map[string]string)
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return wrapError(KindConfig, provider, err, "invalid provider configuration")
		}
		for _, fe := range verrs {
			fields[fieldPath(fe)] = fieldMessage(fe)
		}
	}

	if c.BaseURL != "" {
		if msg := checkURL("BaseURL", c.BaseURL); msg != "" {
			fields["BaseURL"] = msg
		}
	}
	if c.Auth.kind() == AuthOAuth2 && c.Auth.TokenURL != "" {
		if msg := checkURL("Auth.TokenURL", c.Auth.TokenURL); msg != "" {
			fields["Auth.TokenURL"] = msg
		}
	}
	if c.Auth.kind() == AuthJWT {
		switch {
		case c.Auth.SigningMethod == "HS256" || (c.Auth.SigningMethod == "" && c.Auth.Secret != ""):
			if c.Auth.Secret == "" {
				fields["Auth.Secret"] = "Auth.Secret is required for HS256"
			}
		default:
			if c.Auth.PrivateKeyPEM == "" && c.Auth.PKCS12File == "" {
				fields["Auth.PrivateKeyPEM"] = "Auth.PrivateKeyPEM or Auth.PKCS12File is required for RS256"
			}
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return &Error{
		Kind:        KindConfig,
		Provider:    provider,
		Message:     "invalid provider configuration",
		FieldErrors: fields,
	}
}

func checkURL(field, raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("%s %q does not parse: %v", field, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Sprintf("%s %q must use http or https", field, raw)
	}
	if u.Host == "" {
		return fmt.Sprintf("%s %q has no host", field, raw)
	}
	return ""
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	field := fieldPath(fe)
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s validation failed on '%s' tag", field, fe.Tag())
	}
}
