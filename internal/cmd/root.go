// Package cmd implements the gatewayctl command line.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apigateway "github.com/hadivarp/apigateway"
	"github.com/hadivarp/apigateway/adapters"
	"github.com/hadivarp/apigateway/internal/config"
	"github.com/hadivarp/apigateway/internal/logging"
)

var (
	cfgFile   string
	envFiles  []string
	logLevel  string
	logFormat string
	builtin   bool

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var rootCmd = &cobra.Command{
	Use:   "gatewayctl",
	Short: "Call third-party APIs through the outbound gateway",
	Long: `gatewayctl registers the providers from the configuration file (and optionally the
builtin catalog) and sends requests through the gateway, with authentication,
rate limiting, retries and response caching applied.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./apigateway.yaml, ./configs, $HOME/.apigateway)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default ./.env when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format override (json, console)")
	rootCmd.PersistentFlags().BoolVar(&builtin, "builtin", false, "also register builtin providers with credentials in the environment")
}

// session is everything a subcommand needs.
type session struct {
	cfg     *config.Config
	logger  *zap.Logger
	gateway *apigateway.Gateway
}

func (s *session) close() {
	_ = s.gateway.Close()
	_ = s.logger.Sync()
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load(config.Options{Path: cfgFile, EnvFiles: envFiles})
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	if builtin {
		cfg.Builtin.Enabled = true
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	opts := append(cfg.GatewayOptions(), apigateway.WithLogger(logger))
	gw := apigateway.New(opts...)
	names, err := cfg.Apply(gw, adapters.OSEnv)
	if err != nil {
		_ = gw.Close()
		return nil, err
	}
	if cfg.Gateway.SweepInterval > 0 {
		gw.StartSweeper(ctx, cfg.Gateway.SweepInterval)
	}
	logger.Debug("gateway ready", zap.Strings("providers", names))

	return &session{cfg: cfg, logger: logger, gateway: gw}, nil
}

func requireProviders(s *session) error {
	if len(s.gateway.Providers()) == 0 {
		return fmt.Errorf("no providers registered: add providers to the config file or pass --builtin")
	}
	return nil
}
