package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"idealista-pricing/scraper/idealista"
)

func distanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "distance <lon1> <lat1> <lon2> <lat2>",
		Short: "Print the great-circle distance in meters between two points",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			coords := make([]float64, len(args))
			for i, a := range args {
				f, err := strconv.ParseFloat(a, 64)
				if err != nil {
					return fmt.Errorf("coordinate %q: %w", a, err)
				}
				coords[i] = f
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.1f\n", idealista.Distance(coords[0], coords[1], coords[2], coords[3]))
			return nil
		},
	}
}
