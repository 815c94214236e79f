package export

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/airzone/internal/overlay"
	"github.com/sells-group/airzone/internal/zone"
)

// wgs84PRJ is the ESRI WKT written to the .prj sidecar.
const wgs84PRJ = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// DBF field names are limited to 10 bytes.
var shapeFields = []shp.Field{
	shp.NumberField("ROW", 8),
	shp.StringField("CODE", 32),
	shp.StringField("LOCATION", 128),
	shp.StringField("ALTITUDE", 64),
	shp.StringField("NOTE", 128),
	shp.StringField("SHAPE", 8),
	shp.FloatField("RADIUS_M", 12, 1),
}

// WriteShapefile writes parsed records as polygons to path (.shp plus its
// .shx, .dbf, .prj and .cpg sidecars). It returns the number written.
func WriteShapefile(path string, recs []zone.Record, segments int) (int, error) {
	if !strings.EqualFold(filepath.Ext(path), ".shp") {
		path += ".shp"
	}

	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return 0, eris.Wrapf(err, "export: create shapefile %s", path)
	}
	if err := w.SetFields(shapeFields); err != nil {
		w.Close()
		return 0, eris.Wrap(err, "export: set shapefile fields")
	}

	written := 0
	for _, rec := range recs {
		poly, ok := overlay.RecordPolygon(rec.Geometry, segments)
		if !ok {
			continue
		}
		shape := toShpPolygon(poly)
		idx := int(w.Write(shape))

		attrs := []interface{}{
			rec.Row,
			clip(rec.Code, 32),
			clip(rec.Location, 128),
			clip(rec.Altitude, 64),
			clip(rec.Note, 128),
			rec.Geometry.Shape.String(),
			rec.Geometry.RadiusMeters,
		}
		for field, v := range attrs {
			if err := w.WriteAttribute(idx, field, v); err != nil {
				w.Close()
				return 0, eris.Wrapf(err, "export: write attribute row %d", rec.Row)
			}
		}
		written++
	}
	w.Close()

	base := strings.TrimSuffix(path, filepath.Ext(path))
	if err := os.WriteFile(base+".prj", []byte(wgs84PRJ), 0o644); err != nil {
		return 0, eris.Wrap(err, "export: write prj")
	}
	if err := os.WriteFile(base+".cpg", []byte("UTF-8"), 0o644); err != nil {
		return 0, eris.Wrap(err, "export: write cpg")
	}
	return written, nil
}

// toShpPolygon converts the outer ring, oriented clockwise as shapefiles
// require for exterior rings.
func toShpPolygon(p *geom.Polygon) *shp.Polygon {
	ring := p.LinearRing(0)
	pts := make([]shp.Point, ring.NumCoords())
	for i := range pts {
		c := ring.Coord(i)
		pts[i] = shp.Point{X: c.X(), Y: c.Y()}
	}
	if signedArea(pts) > 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{pts}))
	return &poly
}

// signedArea is positive for counter-clockwise rings.
func signedArea(pts []shp.Point) float64 {
	var a float64
	for i := 0; i+1 < len(pts); i++ {
		a += pts[i].X*pts[i+1].Y - pts[i+1].X*pts[i].Y
	}
	return a / 2
}

// clip truncates s to at most n bytes without splitting a UTF-8 sequence.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
