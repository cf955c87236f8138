package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCommand creates the root command for the CLI
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "freightctl",
		Short: "freightctl - load profitability from the command line",
		Long: `freightctl runs the load profitability calculator locally.

Examples:
  freightctl calc --fixed 1200 --variable 1800 --baseline 3000 --pay 1100 --miles 500
  freightctl calc --fixed 1200 --variable 1800 --baseline 3000 --pay 1100 --miles 500 --mpg 7.2 --fuel-price 3.75 --json
  freightctl rating --mpg 6.8`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.AddCommand(NewCalcCommand())
	rootCmd.AddCommand(NewRatingCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
