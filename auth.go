// auth.go
// -------
// Authenticators attach provider credentials to outgoing requests. One is built per provider
// at registration time from its AuthConfig:
//
//   - none:    nothing is added
//   - bearer:  Authorization: Bearer <token>
//   - api_key: a header (X-API-Key unless configured) or a query parameter
//   - basic:   Authorization: Basic base64(user:pass)
//   - oauth2:  client-credentials grant, token cached until it expires
//   - jwt:     self-signed bearer token, HS256 or RS256 (PEM key or PKCS#12 bundle)
package apigateway

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/pkcs12"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	defaultJWTTTL  = 5 * time.Minute
	jwtRefreshSkew = time.Minute
)

// NewAuthenticator builds the Authenticator for a provider. client is used for token endpoint
// calls and may be nil.
func NewAuthenticator(provider string, cfg AuthConfig, client *http.Client, clock Clock) (Authenticator, error) {
	if clock == nil {
		clock = time.Now
	}
	switch cfg.kind() {
	case AuthNone:
		return noAuth{}, nil
	case AuthBearer:
		return bearerAuth{token: cfg.Token}, nil
	case AuthAPIKey:
		header := cfg.Header
		if header == "" {
			header = DefaultAPIKeyHdr
		}
		return apiKeyAuth{key: cfg.APIKey, header: header, queryParam: cfg.QueryParam}, nil
	case AuthBasic:
		return basicAuth{username: cfg.Username, password: cfg.Password}, nil
	case AuthOAuth2:
		return newOAuth2Auth(provider, cfg, client), nil
	case AuthJWT:
		return newJWTAuth(provider, cfg, clock)
	default:
		return nil, newError(KindConfig, provider, "unknown auth kind %q", cfg.Kind)
	}
}

type noAuth struct{}

func (noAuth) Apply(context.Context, *http.Request) error { return nil }

type bearerAuth struct {
	token string
}

func (b bearerAuth) Apply(_ context.Context, req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+b.token)
	return nil
}

type apiKeyAuth struct {
	key        string
	header     string
	queryParam string
}

func (a apiKeyAuth) Apply(_ context.Context, req *http.Request) error {
	if a.queryParam != "" {
		q := req.URL.Query()
		q.Set(a.queryParam, a.key)
		req.URL.RawQuery = q.Encode()
		return nil
	}
	req.Header.Set(a.header, a.key)
	return nil
}

type basicAuth struct {
	username string
	password string
}

func (b basicAuth) Apply(_ context.Context, req *http.Request) error {
	creds := base64.StdEncoding.EncodeToString([]byte(b.username + ":" + b.password))
	req.Header.Set("Authorization", "Basic "+creds)
	return nil
}

type oauth2Auth struct {
	provider string
	config   *clientcredentials.Config
	client   *http.Client

	// sem admits one token fetch at a time; waiters give up when their context ends.
	sem   chan struct{}
	token *oauth2.Token
}

func newOAuth2Auth(provider string, cfg AuthConfig, client *http.Client) *oauth2Auth {
	return &oauth2Auth{
		provider: provider,
		config: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		},
		client: client,
		sem:    make(chan struct{}, 1),
	}
}

// Apply fetches the token under ctx, so the attempt deadline and caller cancellation bound
// the token endpoint call. Timeouts and cancellations are returned unwrapped for the
// executor's retry handling; other failures are authentication errors.
func (o *oauth2Auth) Apply(ctx context.Context, req *http.Request) error {
	tok, err := o.currentToken(ctx)
	if err != nil {
		if ctx.Err() != nil || isTimeout(err) {
			return fmt.Errorf("fetch oauth2 token: %w", err)
		}
		return wrapError(KindAuthentication, o.provider, err, "fetch oauth2 token")
	}
	tok.SetAuthHeader(req)
	return nil
}

func (o *oauth2Auth) currentToken(ctx context.Context) (*oauth2.Token, error) {
	select {
	case o.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-o.sem }()

	if o.token.Valid() {
		return o.token, nil
	}
	if o.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.client)
	}
	tok, err := o.config.Token(ctx)
	if err != nil {
		return nil, err
	}
	o.token = tok
	return tok, nil
}

type jwtAuth struct {
	provider string
	method   jwt.SigningMethod
	key      any
	cert     *x509.Certificate
	issuer   string
	subject  string
	audience string
	ttl      time.Duration
	now      Clock

	mu      sync.Mutex
	token   string
	expires time.Time
}

func newJWTAuth(provider string, cfg AuthConfig, clock Clock) (*jwtAuth, error) {
	a := &jwtAuth{
		provider: provider,
		issuer:   cfg.Issuer,
		subject:  cfg.Subject,
		audience: cfg.Audience,
		ttl:      cfg.TokenTTL,
		now:      clock,
	}
	if a.ttl <= 0 {
		a.ttl = defaultJWTTTL
	}

	switch {
	case cfg.SigningMethod == "HS256" || (cfg.SigningMethod == "" && cfg.Secret != ""):
		a.method = jwt.SigningMethodHS256
		a.key = []byte(cfg.Secret)
	case cfg.PKCS12File != "":
		data, err := os.ReadFile(cfg.PKCS12File)
		if err != nil {
			return nil, wrapError(KindConfig, provider, err, "read pkcs12 file")
		}
		key, cert, err := parsePKCS12(data, cfg.PKCS12Password)
		if err != nil {
			return nil, wrapError(KindConfig, provider, err, "parse pkcs12 file")
		}
		a.method = jwt.SigningMethodRS256
		a.key = key
		a.cert = cert
	default:
		key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.PrivateKeyPEM))
		if err != nil {
			return nil, wrapError(KindConfig, provider, err, "parse RSA private key")
		}
		a.method = jwt.SigningMethodRS256
		a.key = key
	}
	return a, nil
}

func parsePKCS12(data []byte, password string) (*rsa.PrivateKey, *x509.Certificate, error) {
	privateKey, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return nil, nil, fmt.Errorf("decode pkcs12: %w", err)
	}
	rsaKey, ok := privateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, nil, fmt.Errorf("private key is not RSA")
	}
	return rsaKey, cert, nil
}

func (a *jwtAuth) Apply(_ context.Context, req *http.Request) error {
	tok, err := a.currentToken()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	return nil
}

func (a *jwtAuth) currentToken() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if a.token != "" && now.Before(a.expires.Add(-jwtRefreshSkew)) {
		return a.token, nil
	}

	exp := now.Add(a.ttl)
	claims := jwt.MapClaims{
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": exp.Unix(),
	}
	if a.issuer != "" {
		claims["iss"] = a.issuer
	}
	if a.subject != "" {
		claims["sub"] = a.subject
	}
	if a.audience != "" {
		claims["aud"] = a.audience
	}

	token := jwt.NewWithClaims(a.method, claims)
	if a.cert != nil {
		x5c := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: a.cert.Raw})
		token.Header["x5c"] = []string{string(x5c)}
	}
	signed, err := token.SignedString(a.key)
	if err != nil {
		return "", wrapError(KindAuthentication, a.provider, err, "sign jwt")
	}
	a.token = signed
	a.expires = exp
	return signed, nil
}
