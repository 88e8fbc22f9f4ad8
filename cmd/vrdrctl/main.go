// Command vrdrctl builds and checks death certificate documents from the
// command line and manages the Redpanda topics the services use.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "vrdrctl",
		Short:         "Death certificate document tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(buildCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(valueSetsCmd())
	rootCmd.AddCommand(topicsCmd())
	return rootCmd
}
