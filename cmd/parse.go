package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/airzone/internal/zone"
)

var parseOutput string

var parseCmd = &cobra.Command{
	Use:   "parse <extent>...",
	Short: "Classify horizontal-extent strings as circle, polygon or unparsed",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := make([]zone.Geometry, 0, len(args))
		for _, a := range args {
			out = append(out, zone.ClassifyExtent(a))
		}
		return writeOutput(cmd.OutOrStdout(), parseOutput, out)
	},
}

func init() {
	parseCmd.Flags().StringVarP(&parseOutput, "output", "o", "json", "output format: json or yaml")
	rootCmd.AddCommand(parseCmd)
}
