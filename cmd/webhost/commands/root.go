// Package commands implements the webhost CLI.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "webhost",
	Short: "webhost - web host with dependency injection for applications",
	Long: `webhost deploys the web applications listed in a host configuration file.
Applications carrying a WEB-INF/beans.xml marker get an application container,
and their listeners and handlers are injected from it.

Use "webhost [command] --help" for more information about a command.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	rootCmd.Version = Version
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "host.yaml", "host configuration file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
}
