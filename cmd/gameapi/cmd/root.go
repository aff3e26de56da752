// Package cmd contains all CLI commands for gameapi.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string

	// Set at build time with -ldflags.
	version   = "dev"
	buildTime = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "gameapi",
	Short: "HTTP JSON API server for browser games",
	Long: `gameapi serves named API methods to game clients over HTTP.

Clients POST a JSON object to /api/<name>.json and receive either
{"response": ...} or {"error": {"code": ...}}. Connections are throttled
per source address before any request is read.

Examples:
  # Start the server with the default configuration
  gameapi serve

  # Start with a custom configuration file
  gameapi serve --config /etc/gameapi/config.yaml

  # List the registered API methods
  gameapi handlers

Environment Variables:
  GAMEAPI_SERVER_PORT, GAMEAPI_ADMISSION_MAX_ATTEMPTS, ... override the
  configuration file. A .env file in the working directory is read too.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/config.yaml", "Path to configuration file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(handlersCmd)
	rootCmd.AddCommand(versionCmd)
}
