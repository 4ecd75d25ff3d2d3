package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	apigateway "github.com/hadivarp/apigateway"
	"github.com/hadivarp/apigateway/adapters"
)

var providersOutput string

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List registered providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		type row struct {
			Name   string                     `json:"name"`
			Config apigateway.ProviderConfig `json:"config"`
		}
		var rows []row
		for _, name := range s.gateway.Providers() {
			cfg, _ := s.gateway.Provider(name)
			cfg.Auth = apigateway.AuthConfig{Kind: cfg.Auth.Kind}
			rows = append(rows, row{Name: name, Config: cfg})
		}

		switch strings.ToLower(providersOutput) {
		case "json":
			payload, err := json.MarshalIndent(rows, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(payload))
			return err
		case "table", "":
		default:
			return fmt.Errorf("unsupported output format: %s", providersOutput)
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Name", "Category", "Base URL", "Auth", "Rate Limit", "Timeout", "Retries", "Cache TTL", "Active"})
		for _, r := range rows {
			t.AppendRow(table.Row{
				r.Name,
				category(r.Name),
				r.Config.BaseURL,
				authLabel(r.Config.Auth.Kind),
				rateLimitLabel(r.Config.RateLimit),
				durationLabel(r.Config.Timeout, "default"),
				r.Config.MaxRetries,
				durationLabel(r.Config.CacheTTL, "off"),
				yesNo(r.Config.Active()),
			})
		}
		if len(rows) == 0 {
			t.AppendRow(table.Row{"(none)", "", "", "", "", "", "", "", ""})
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return err
	},
}

func init() {
	providersCmd.Flags().StringVarP(&providersOutput, "output", "o", "table", "output format (table, json)")
	rootCmd.AddCommand(providersCmd)
}

func category(name string) string {
	if d, ok := adapters.Lookup(name); ok {
		return d.Category
	}
	return "custom"
}

func authLabel(kind apigateway.AuthKind) string {
	if kind == "" {
		return string(apigateway.AuthNone)
	}
	return string(kind)
}
