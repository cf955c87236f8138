package cli

import (
	"fmt"

	"freight-service/internal/profitability"

	"github.com/spf13/cobra"
)

// NewRatingCommand creates the rating command
func NewRatingCommand() *cobra.Command {
	var mpg float64

	cmd := &cobra.Command{
		Use:   "rating",
		Short: "Rate a fuel economy figure",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), profitability.RateEfficiency(mpg))
			return nil
		},
	}

	cmd.Flags().Float64Var(&mpg, "mpg", 0, "Miles per gallon")
	_ = cmd.MarkFlagRequired("mpg")

	return cmd
}
