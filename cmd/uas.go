package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/airzone/internal/export"
	"github.com/sells-group/airzone/internal/store"
	"github.com/sells-group/airzone/internal/uas"
)

var (
	uasSource    string
	uasOutput    string
	uasVerbose   bool
	exportFormat string
	exportOut    string
)

var uasCmd = &cobra.Command{
	Use:   "uas",
	Short: "Work with the UAS flight-zone dataset",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		if uasSource != "" {
			cfg.UAS.Source = uasSource
		}
		return cfg.Validate("uas")
	},
}

// loadDataset reads and classifies the configured dataset.
func loadDataset(cmd *cobra.Command) (*uas.Report, error) {
	return uas.Load(cmd.Context(), newFetcher(cfg), cfg.UAS.Source, datasetOptions(cfg))
}

type checkResult struct {
	Source   string       `json:"source" yaml:"source"`
	Summary  uas.Summary  `json:"summary" yaml:"summary"`
	Unparsed []checkEntry `json:"unparsed,omitempty" yaml:"unparsed,omitempty"`
}

type checkEntry struct {
	Row    int    `json:"row" yaml:"row"`
	Label  string `json:"label" yaml:"label"`
	Extent string `json:"extent" yaml:"extent"`
	Reason string `json:"reason" yaml:"reason"`
}

var uasCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Load the dataset and report how each row classified",
	RunE: func(cmd *cobra.Command, _ []string) error {
		report, err := loadDataset(cmd)
		if err != nil {
			return err
		}

		res := checkResult{Source: report.Source, Summary: report.Summarize()}
		if uasVerbose {
			for _, rec := range report.Unparsed() {
				res.Unparsed = append(res.Unparsed, checkEntry{
					Row:    rec.Row,
					Label:  rec.Label(),
					Extent: rec.Extent,
					Reason: rec.Geometry.Skip.String(),
				})
			}
		}
		return writeOutput(cmd.OutOrStdout(), uasOutput, res)
	},
}

var uasImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Load the dataset and persist it to the zone store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		report, err := loadDataset(cmd)
		if err != nil {
			return err
		}

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close() //nolint:errcheck

		imp, err := st.SaveImport(ctx, report.Source, report.Records)
		if err != nil {
			return eris.Wrap(err, "save import")
		}

		zap.L().Info("uas import complete",
			zap.String("import_id", imp.ID),
			zap.Int("zones", imp.Zones),
			zap.Int("parsed", imp.Parsed),
			zap.Int("unparsed", imp.Unparsed),
		)
		return writeOutput(cmd.OutOrStdout(), uasOutput, imp)
	},
}

var uasExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the dataset's zones as GeoJSON or a shapefile",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}

		report, err := loadDataset(cmd)
		if err != nil {
			return err
		}

		res, err := export.Records(exportOut, format, report.Records, cfg.Overlay.CircleSegments)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), uasOutput, res)
	},
}

func init() {
	uasCmd.PersistentFlags().StringVar(&uasSource, "source", "", "dataset path or URL (csv or xlsx; default uas.source)")
	uasCmd.PersistentFlags().StringVarP(&uasOutput, "output", "o", "json", "output format: json or yaml")

	uasCheckCmd.Flags().BoolVarP(&uasVerbose, "verbose", "v", false, "list every unparsed row")

	uasExportCmd.Flags().StringVar(&exportFormat, "format", "geojson", "export format: geojson or shp")
	uasExportCmd.Flags().StringVar(&exportOut, "out", "", "output path (required)")
	_ = uasExportCmd.MarkFlagRequired("out")

	uasCmd.AddCommand(uasCheckCmd, uasImportCmd, uasExportCmd)
	rootCmd.AddCommand(uasCmd)
}
