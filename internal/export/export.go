// Package export writes UAS zone records as GeoJSON or ESRI shapefiles.
package export

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/airzone/internal/overlay"
	"github.com/sells-group/airzone/internal/zone"
)

// Format is an export file format.
type Format string

// Supported formats.
const (
	FormatGeoJSON   Format = "geojson"
	FormatShapefile Format = "shp"
)

// ParseFormat accepts geojson/json and shp/shapefile.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "geojson", "json":
		return FormatGeoJSON, nil
	case "shp", "shapefile":
		return FormatShapefile, nil
	default:
		return "", eris.Errorf("export: unknown format %q", s)
	}
}

// Result reports what an export wrote.
type Result struct {
	Path     string `json:"path" yaml:"path"`
	Format   Format `json:"format" yaml:"format"`
	Features int    `json:"features" yaml:"features"`
	Skipped  int    `json:"skipped" yaml:"skipped"`
}

// Records writes recs to path in format. Unparsed records are skipped.
func Records(path string, format Format, recs []zone.Record, segments int) (*Result, error) {
	if segments <= 0 {
		segments = overlay.DefaultCircleSegments
	}

	var (
		n   int
		err error
	)
	switch format {
	case FormatGeoJSON:
		n, err = writeGeoJSONFile(path, recs, segments)
	case FormatShapefile:
		n, err = WriteShapefile(path, recs, segments)
	default:
		return nil, eris.Errorf("export: unknown format %q", format)
	}
	if err != nil {
		return nil, err
	}

	res := &Result{Path: path, Format: format, Features: n, Skipped: len(recs) - n}
	zap.L().Info("export: written",
		zap.String("path", path),
		zap.String("format", string(format)),
		zap.Int("features", res.Features),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

func writeGeoJSONFile(path string, recs []zone.Record, segments int) (int, error) {
	fc := overlay.FromRecords(recs, segments)

	f, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrapf(err, "export: create %s", path)
	}
	if err := WriteGeoJSON(f, fc); err != nil {
		_ = f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, eris.Wrapf(err, "export: close %s", path)
	}
	return len(fc.Features), nil
}
