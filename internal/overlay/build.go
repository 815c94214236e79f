package overlay

import (
	"fmt"
	"math"
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/airzone/internal/zone"
	"github.com/sells-group/airzone/pkg/vworld"
)

// DefaultCircleSegments is the vertex count of a polygonized circle.
const DefaultCircleSegments = 64

// earthRadiusMeters is the IUGG mean Earth radius.
const earthRadiusMeters = 6371008.8

// CirclePolygon approximates a circle on the sphere as a closed ring of
// segments vertices.
func CirclePolygon(center zone.GeoPoint, radiusMeters float64, segments int) *geom.Polygon {
	if segments < 3 {
		segments = DefaultCircleSegments
	}
	lat1 := center.Lat * math.Pi / 180
	lon1 := center.Lon * math.Pi / 180
	d := radiusMeters / earthRadiusMeters

	flat := make([]float64, 0, 2*(segments+1))
	for i := 0; i < segments; i++ {
		brng := 2 * math.Pi * float64(i) / float64(segments)
		lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(brng))
		lon2 := lon1 + math.Atan2(
			math.Sin(brng)*math.Sin(d)*math.Cos(lat1),
			math.Cos(d)-math.Sin(lat1)*math.Sin(lat2),
		)
		flat = append(flat, lon2*180/math.Pi, lat2*180/math.Pi)
	}
	flat = append(flat, flat[0], flat[1])

	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
}

// VertexPolygon closes the vertex ring in source order.
func VertexPolygon(vertices []zone.GeoPoint) *geom.Polygon {
	flat := make([]float64, 0, 2*(len(vertices)+1))
	for _, v := range vertices {
		flat = append(flat, v.Lon, v.Lat)
	}
	first, last := vertices[0], vertices[len(vertices)-1]
	if first != last {
		flat = append(flat, first.Lon, first.Lat)
	}
	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
}

// RecordPolygon returns the polygon for a parsed record geometry.
func RecordPolygon(g zone.Geometry, segments int) (*geom.Polygon, bool) {
	switch g.Shape {
	case zone.ShapeCircle:
		return CirclePolygon(g.Center, g.RadiusMeters, segments), true
	case zone.ShapePolygon:
		if len(g.Vertices) < 3 {
			return nil, false
		}
		return VertexPolygon(g.Vertices), true
	default:
		return nil, false
	}
}

// RecordFeature converts one record. ok is false for unparsed records.
func RecordFeature(rec zone.Record, segments int) (*geojson.Feature, bool) {
	poly, ok := RecordPolygon(rec.Geometry, segments)
	if !ok {
		return nil, false
	}

	props := map[string]interface{}{
		"row":      rec.Row,
		"code":     rec.Code,
		"location": rec.Location,
		"altitude": rec.Altitude,
		"shape":    rec.Geometry.Shape.String(),
		"popup":    recordPopup(rec),
	}
	if rec.Note != "" {
		props["note"] = rec.Note
	}
	if rec.Geometry.Shape == zone.ShapeCircle {
		props["radius_m"] = rec.Geometry.RadiusMeters
		props["radius_defaulted"] = rec.Geometry.RadiusDefaulted
		props["center"] = []float64{rec.Geometry.Center.Lon, rec.Geometry.Center.Lat}
	}

	id := rec.Code
	if id == "" {
		id = fmt.Sprintf("row-%d", rec.Row)
	}
	return &geojson.Feature{ID: id, Geometry: poly, Properties: props}, true
}

// FromRecords converts parsed records to a feature collection. Unparsed
// records are left out.
//
// Feature IDs are the zone code; a code shared by several rows gets the row
// number appended so IDs stay unique.
func FromRecords(recs []zone.Record, segments int) *geojson.FeatureCollection {
	codes := make(map[string]int, len(recs))
	for _, rec := range recs {
		if rec.Code != "" {
			codes[rec.Code]++
		}
	}

	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(recs))}
	for _, rec := range recs {
		f, ok := RecordFeature(rec, segments)
		if !ok {
			continue
		}
		if codes[rec.Code] > 1 {
			f.ID = fmt.Sprintf("%s-row-%d", rec.Code, rec.Row)
		}
		fc.Features = append(fc.Features, f)
	}
	return fc
}

func recordPopup(rec zone.Record) string {
	var b strings.Builder
	b.WriteString(rec.Label())
	if rec.Altitude != "" {
		b.WriteString("<br/>고도: ")
		b.WriteString(rec.Altitude)
	}
	if rec.Note != "" {
		b.WriteString("<br/>비고: ")
		b.WriteString(rec.Note)
	}
	return b.String()
}

// FromVWorld converts a VWorld feature set. label is the overlay's display
// name used in each popup.
func FromVWorld(fs *vworld.FeatureSet, label string) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{}
	if fs.Empty() {
		fc.Features = []*geojson.Feature{}
		return fc
	}
	fc.Features = make([]*geojson.Feature, 0, len(fs.Features))
	for _, f := range fs.Features {
		props := make(map[string]interface{}, len(f.Properties)+2)
		for k, v := range f.Properties {
			props[k] = v
		}
		props["label"] = f.Label
		props["popup"] = fmt.Sprintf("%s<br/>라벨: %s", label, f.Label)
		fc.Features = append(fc.Features, &geojson.Feature{ID: f.ID, Geometry: f.Geometry, Properties: props})
	}
	return fc
}

// Filter keeps the features whose bounds overlap bbox.
func Filter(fc *geojson.FeatureCollection, bbox vworld.BBox) *geojson.FeatureCollection {
	box := geom.NewBounds(geom.XY).Set(bbox.West, bbox.South, bbox.East, bbox.North)
	out := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(fc.Features))}
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		if f.Geometry.Bounds().Overlaps(geom.XY, box) {
			out.Features = append(out.Features, f)
		}
	}
	return out
}
