package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	apigateway "github.com/hadivarp/apigateway"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		v := versionInfo.Version
		if v == "" || v == "dev" {
			v = apigateway.Version + "-dev"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "gatewayctl %s (commit %s, built %s)\n", v, versionInfo.Commit, versionInfo.BuildDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
