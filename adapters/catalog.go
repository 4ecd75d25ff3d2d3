// catalog.go
// ----------
// The adapters package ships ready-made ProviderConfigs for the third-party services a
// site builder typically calls: stock images, video, web fonts, payments, mailing lists
// and social feeds. Each provider lives in its own file with its default limits; this file
// collects them and registers the ones whose credentials are present.
//
// Credentials are read through an Env lookup (os.Getenv unless a different one is given),
// so a .env file loaded beforehand is picked up too.
package adapters

import (
	"fmt"
	"os"
	"strings"

	apigateway "github.com/hadivarp/apigateway"
)

// Env looks up a credential by variable name.
type Env func(key string) string

// OSEnv reads the process environment.
func OSEnv(key string) string {
	return os.Getenv(key)
}

// Definition describes one builtin provider.
type Definition struct {
	Name     string
	Category string
	// CredentialEnv lists the variables that must be set for the provider to be usable.
	CredentialEnv []string
	Build         func(env Env) apigateway.ProviderConfig
}

// Definitions returns the catalog in a stable order.
func Definitions() []Definition {
	return []Definition{
		unsplash(),
		pexels(),
		pixabay(),
		youtube(),
		vimeo(),
		googleFonts(),
		stripe(),
		mailchimp(),
		instagram(),
	}
}

// Lookup finds a builtin provider by name.
func Lookup(name string) (Definition, bool) {
	for _, d := range Definitions() {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// Provider is a builtin provider ready to register.
type Provider struct {
	Name   string
	Config apigateway.ProviderConfig
}

// Builtin builds the providers whose credentials env can supply. With only set, just
// those names are considered. The names skipped for missing credentials are returned too.
func Builtin(env Env, only ...string) ([]Provider, []string, error) {
	if env == nil {
		env = OSEnv
	}
	want := make(map[string]bool, len(only))
	for _, name := range only {
		if _, ok := Lookup(name); !ok {
			return nil, nil, fmt.Errorf("unknown builtin provider %q", name)
		}
		want[name] = true
	}

	var (
		out     []Provider
		skipped []string
	)
	for _, d := range Definitions() {
		if len(want) > 0 && !want[d.Name] {
			continue
		}
		if missing := missingCredentials(env, d.CredentialEnv); len(missing) > 0 {
			skipped = append(skipped, d.Name)
			continue
		}
		out = append(out, Provider{Name: d.Name, Config: d.Build(env)})
	}
	return out, skipped, nil
}

// RegisterBuiltin registers every builtin provider env has credentials for and returns
// their names.
func RegisterBuiltin(gw *apigateway.Gateway, env Env, only ...string) ([]string, error) {
	providers, _, err := Builtin(env, only...)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		if err := gw.Register(p.Name, p.Config); err != nil {
			return names, err
		}
		names = append(names, p.Name)
	}
	return names, nil
}

func missingCredentials(env Env, keys []string) []string {
	var missing []string
	for _, k := range keys {
		if strings.TrimSpace(env(k)) == "" {
			missing = append(missing, k)
		}
	}
	return missing
}
