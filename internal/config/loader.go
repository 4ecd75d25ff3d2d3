package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultConfigName = "apigateway"
	defaultConfigType = "yaml"
	envPrefix         = "APIGATEWAY"
)

// Options control where Load looks.
type Options struct {
	// Path is an explicit config file. Empty searches ., ./configs and $HOME/.apigateway.
	Path string
	// EnvFiles are loaded into the process environment first. Empty loads ./.env if present.
	EnvFiles []string
}

// Load reads the configuration. Priority, highest first:
// 1. APIGATEWAY_* environment variables (after .env files are applied)
// 2. The config file
// 3. Defaults
//
// String values may reference environment variables as ${NAME}, which is how provider
// credentials are usually kept out of the file.
func Load(opts Options) (*Config, error) {
	if err := loadDotEnv(opts.EnvFiles); err != nil {
		return nil, &LoadError{Op: "dotenv", Err: err}
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(defaultConfigName)
	v.SetConfigType(defaultConfigType)
	if opts.Path != "" {
		v.SetConfigFile(opts.Path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.apigateway")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.Path != "" || !errors.As(err, &notFound) {
			return nil, &LoadError{Op: "read", Err: fmt.Errorf("failed to read config file: %w", err)}
		}
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			expandEnvHook(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, &LoadError{Op: "decode", Err: fmt.Errorf("failed to create decoder: %w", err)}
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, &LoadError{Op: "decode", Err: fmt.Errorf("failed to unmarshal config: %w", err)}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("gateway.base_backoff", "1s")
	v.SetDefault("gateway.sweep_interval", "0s")
	v.SetDefault("gateway.user_agent", "")
	v.SetDefault("builtin.enabled", false)
	v.SetDefault("builtin.only", []string{})
}

func loadDotEnv(files []string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		files = []string{".env"}
	}
	return godotenv.Load(files...)
}

// expandEnvHook replaces ${NAME} references in string values.
func expandEnvHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String {
			return data, nil
		}
		s, ok := data.(string)
		if !ok || !strings.Contains(s, "$") {
			return data, nil
		}
		return os.ExpandEnv(s), nil
	}
}
