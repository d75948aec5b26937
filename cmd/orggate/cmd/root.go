// Package cmd provides the CLI commands for orggate.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/orggate/orggate/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "orggate",
	Short: "orggate - gated MCP access to a Salesforce-style org platform",
	Long: `orggate exposes an org platform's CLI and REST API as MCP tools,
with a policy layer between the model and the platform: an allowed-orgs
list, read-only mode, CEL guard rules, and interactive confirmation
before destructive operations.

Quick start:
  1. Create a config file: orggate.yaml
  2. Register "orggate serve" as a stdio MCP server with your client.

Configuration:
  Config is loaded from orggate.yaml in the current directory,
  $HOME/.orggate/, or /etc/orggate/.

  Environment variables can override config values with the ORGGATE_ prefix.
  Example: ORGGATE_ORG_READ_ONLY=true

Commands:
  serve       Serve MCP over stdio
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./orggate.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
