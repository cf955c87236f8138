package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"freight-service/internal/profitability"

	"github.com/spf13/cobra"
)

type calcOptions struct {
	cost    profitability.CostInputs
	load    profitability.LoadInputs
	fuel    profitability.FuelInputs
	jsonOut bool
}

// NewCalcCommand creates the calc command
func NewCalcCommand() *cobra.Command {
	var opts calcOptions

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Calculate the profitability of a load",
		Long: `Calculate cost per mile, revenue per mile and profit for a single load.
Fuel cost is included only when both --mpg and --fuel-price are given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var fuel *profitability.FuelInputs
			if cmd.Flags().Changed("mpg") || cmd.Flags().Changed("fuel-price") {
				fuel = &opts.fuel
			}

			result, err := profitability.Calculate(opts.cost, opts.load, fuel)
			if err != nil {
				return err
			}

			if opts.jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			return printResult(cmd.OutOrStdout(), result, fuel != nil && result.EstimatedGallons > 0)
		},
	}

	cmd.Flags().Float64Var(&opts.cost.FixedCostsWeekly, "fixed", 0, "Fixed costs per week")
	cmd.Flags().Float64Var(&opts.cost.VariableCostsWeekly, "variable", 0, "Variable costs per week")
	cmd.Flags().Float64Var(&opts.cost.BaselineWeeklyMiles, "baseline", 0, "Miles driven in a typical week")
	cmd.Flags().Float64Var(&opts.load.Pay, "pay", 0, "Load pay")
	cmd.Flags().Float64Var(&opts.load.Miles, "miles", 0, "Loaded miles")
	cmd.Flags().Float64Var(&opts.fuel.MilesPerGallon, "mpg", 0, "Truck fuel economy in miles per gallon")
	cmd.Flags().Float64Var(&opts.fuel.FuelPricePerGallon, "fuel-price", 0, "Fuel price per gallon")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print the result as JSON")

	return cmd
}

func printResult(out io.Writer, result profitability.Result, withFuel bool) error {
	verdict := "NOT PROFITABLE"
	if result.IsProfitable {
		verdict = "PROFITABLE"
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Cost per mile:\t$%.3f\n", result.CostPerMile)
	fmt.Fprintf(w, "Revenue per mile:\t$%.2f\n", result.LoadRevenuePerMile)
	fmt.Fprintf(w, "Profit:\t$%.2f\n", result.Profit)
	if withFuel {
		fmt.Fprintf(w, "Estimated gallons:\t%.1f\n", result.EstimatedGallons)
		fmt.Fprintf(w, "Fuel cost:\t$%.2f\n", result.FuelCostForLoad)
	}
	fmt.Fprintf(w, "Fuel efficiency:\t%s (%.1f mpg)\n", result.FuelEfficiency, result.MilesPerGallon)
	fmt.Fprintf(w, "Verdict:\t%s\n", verdict)
	return w.Flush()
}
