// Package config loads gateway settings and provider definitions from a YAML file,
// .env files and APIGATEWAY_* environment variables.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	apigateway "github.com/hadivarp/apigateway"
	"github.com/hadivarp/apigateway/adapters"
)

// Config is the decoded configuration.
type Config struct {
	Logging   LoggingConfig                        `mapstructure:"logging"`
	Gateway   GatewayConfig                        `mapstructure:"gateway"`
	Builtin   BuiltinConfig                        `mapstructure:"builtin"`
	Providers map[string]apigateway.ProviderConfig `mapstructure:"providers"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type GatewayConfig struct {
	BaseBackoff   time.Duration `mapstructure:"base_backoff"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	UserAgent     string        `mapstructure:"user_agent"`
}

// BuiltinConfig selects providers from the adapters catalog. Only empty means all of them.
type BuiltinConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Only    []string `mapstructure:"only"`
}

// Validate checks the settings that are not checked on provider registration.
func (c *Config) Validate() error {
	var errs []string
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("logging.level '%s' is invalid, must be one of: debug, info, warn, error", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("logging.format '%s' is invalid, must be one of: json, console", c.Logging.Format))
	}
	if c.Gateway.BaseBackoff < 0 {
		errs = append(errs, "gateway.base_backoff must not be negative")
	}
	if c.Gateway.SweepInterval < 0 {
		errs = append(errs, "gateway.sweep_interval must not be negative")
	}
	for _, name := range c.Builtin.Only {
		if _, ok := adapters.Lookup(name); !ok {
			errs = append(errs, fmt.Sprintf("builtin.only: unknown provider '%s'", name))
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// GatewayOptions translates the gateway settings into constructor options.
func (c *Config) GatewayOptions() []apigateway.Option {
	var opts []apigateway.Option
	if c.Gateway.BaseBackoff > 0 {
		opts = append(opts, apigateway.WithBaseBackoff(c.Gateway.BaseBackoff))
	}
	if c.Gateway.UserAgent != "" {
		opts = append(opts, apigateway.WithUserAgent(c.Gateway.UserAgent))
	}
	return opts
}

// ProviderNames returns the configured provider names sorted.
func (c *Config) ProviderNames() []string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply registers the builtin providers, when enabled, followed by the configured ones.
// A configured provider with a builtin's name replaces it.
func (c *Config) Apply(gw *apigateway.Gateway, env adapters.Env) ([]string, error) {
	var registered []string
	if c.Builtin.Enabled {
		names, err := adapters.RegisterBuiltin(gw, env, c.Builtin.Only...)
		if err != nil {
			return names, &LoadError{Op: "apply", Err: err}
		}
		registered = append(registered, names...)
	}
	for _, name := range c.ProviderNames() {
		if err := gw.Register(name, c.Providers[name]); err != nil {
			return registered, &LoadError{Op: "apply", Err: err}
		}
		registered = append(registered, name)
	}
	return registered, nil
}
