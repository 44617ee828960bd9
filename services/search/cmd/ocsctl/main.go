// Command ocsctl inspects and publishes search configuration and replays
// dead-lettered events.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Build-time variables (set via ldflags)
	version = "dev"
	commit  = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "ocsctl",
		Short:         "Manage open-commerce-search configuration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ocsctl %s (commit: %s)\n", version, commit)
		},
	})
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newDLQCmd())
	rootCmd.AddCommand(newTokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
