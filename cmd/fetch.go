package main

import (
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/airzone/internal/export"
	"github.com/sells-group/airzone/internal/overlay"
	"github.com/sells-group/airzone/pkg/vworld"
)

var (
	fetchKinds []string
	fetchBBox  string
	fetchOut   string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch VWorld airspace layers as GeoJSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("fetch"); err != nil {
			return err
		}

		kinds, err := vworldKinds(fetchKinds)
		if err != nil {
			return err
		}
		bbox := vworld.KoreaBBox
		if fetchBBox != "" {
			if bbox, err = vworld.ParseBBox(fetchBBox); err != nil {
				return err
			}
		}

		reg := overlay.NewRegistry(
			overlay.NewVWorldSource(newVWorldClient(cfg)),
			overlay.NewStyles(cfg.Overlay.Styles),
		)
		if err := reg.EnableAll(cmd.Context(), kinds, bbox); err != nil {
			return eris.Wrap(err, "fetch layers")
		}

		fc := mergeOverlays(reg, kinds)
		zap.L().Info("fetch complete",
			zap.Int("kinds", len(kinds)),
			zap.Int("features", len(fc.Features)),
			zap.String("bbox", bbox.String()),
		)

		var w io.Writer = cmd.OutOrStdout()
		if fetchOut != "" {
			f, err := os.Create(fetchOut)
			if err != nil {
				return eris.Wrap(err, "create output")
			}
			defer f.Close() //nolint:errcheck
			w = f
		}
		return export.WriteGeoJSON(w, fc)
	},
}

// vworldKinds expands --kind values; "all" means every VWorld-backed kind.
func vworldKinds(names []string) ([]overlay.Kind, error) {
	var out []overlay.Kind
	seen := make(map[overlay.Kind]bool)
	add := func(k overlay.Kind) {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "all" {
			for _, k := range overlay.Kinds() {
				if _, ok := k.Layer(); ok {
					add(k)
				}
			}
			continue
		}
		k, err := overlay.ParseKind(n)
		if err != nil {
			return nil, err
		}
		if _, ok := k.Layer(); !ok {
			return nil, eris.Errorf("kind %q is not a VWorld layer", n)
		}
		add(k)
	}
	if len(out) == 0 {
		return nil, eris.New("at least one --kind is required")
	}
	return out, nil
}

// mergeOverlays flattens the active overlays into one collection, tagging
// each feature with its kind.
func mergeOverlays(reg *overlay.Registry, kinds []overlay.Kind) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}
	for _, k := range kinds {
		o, ok := reg.Active(k)
		if !ok {
			continue
		}
		for _, f := range o.Features.Features {
			if f.Properties == nil {
				f.Properties = map[string]interface{}{}
			}
			f.Properties["kind"] = string(k)
			fc.Features = append(fc.Features, f)
		}
	}
	return fc
}

func init() {
	fetchCmd.Flags().StringSliceVar(&fetchKinds, "kind", []string{"all"}, "restricted, prohibited, atz or all")
	fetchCmd.Flags().StringVar(&fetchBBox, "bbox", "", "bounding box w,s,e,n (default all of Korea)")
	fetchCmd.Flags().StringVar(&fetchOut, "out", "", "write GeoJSON to this file instead of stdout")
	rootCmd.AddCommand(fetchCmd)
}
