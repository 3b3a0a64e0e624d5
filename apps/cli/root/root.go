package root

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the domain verification CLI. Subcommands (migrate, domain) are attached here.
var rootCmd = &cobra.Command{
	Use:           "dvctl",
	Short:         "Domain verification CLI",
	Long:          "Operator utilities for the domain verification service (database migrations, domain registration and verification).",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
