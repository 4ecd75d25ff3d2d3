package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-provider usage, limits and cache size for this process",
	Long: `Stats are kept in memory, so a fresh process reports the registered providers with
no usage. Use "call --repeat N --stats" to see counters move within one run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()
		if err := requireProviders(s); err != nil {
			return err
		}

		stats := s.gateway.AllStats()
		cache := s.gateway.CacheStats()
		if statsJSON {
			payload, err := json.MarshalIndent(map[string]any{"providers": stats, "cache": cache}, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(payload))
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), renderStats(stats, cache))
		return err
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print JSON instead of a table")
	rootCmd.AddCommand(statsCmd)
}
