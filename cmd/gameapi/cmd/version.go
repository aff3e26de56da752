package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leoska/gameapi/internal/api"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "gameapi %s (built %s, api v%d)\n", version, buildTime, api.CurrentAPIVersion)
	},
}
