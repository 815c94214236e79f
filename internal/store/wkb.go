package store

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/airzone/internal/zone"
)

// SRID is the spatial reference of every stored geometry (WGS84).
const SRID = 4326

// EncodeGeometry converts a parsed geometry to EWKB. Circles are stored as
// their center point; polygons as a closed single-ring polygon. Unparsed
// geometry encodes to nil.
func EncodeGeometry(g zone.Geometry) ([]byte, error) {
	var t geom.T
	switch g.Shape {
	case zone.ShapeCircle:
		t = geom.NewPointFlat(geom.XY, []float64{g.Center.Lon, g.Center.Lat}).SetSRID(SRID)
	case zone.ShapePolygon:
		if len(g.Vertices) == 0 {
			return nil, eris.New("store: polygon without vertices")
		}
		flat := make([]float64, 0, 2*(len(g.Vertices)+1))
		for _, v := range g.Vertices {
			flat = append(flat, v.Lon, v.Lat)
		}
		flat = append(flat, g.Vertices[0].Lon, g.Vertices[0].Lat)
		t = geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)}).SetSRID(SRID)
	default:
		return nil, nil
	}

	data, err := ewkb.Marshal(t, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "store: encode WKB")
	}
	return data, nil
}

// DecodeGeometry restores the coordinates of a geometry written by
// EncodeGeometry. Radius and skip fields are stored in their own columns.
func DecodeGeometry(shape zone.Shape, data []byte) (zone.Geometry, error) {
	g := zone.Geometry{Shape: shape}
	if shape == zone.ShapeUnparsed {
		return g, nil
	}
	if len(data) == 0 {
		return g, eris.Errorf("store: %s without geometry", shape)
	}

	t, err := ewkb.Unmarshal(data)
	if err != nil {
		return g, eris.Wrap(err, "store: decode WKB")
	}

	switch v := t.(type) {
	case *geom.Point:
		if shape != zone.ShapeCircle {
			return g, eris.Errorf("store: point stored for %s", shape)
		}
		g.Center = zone.GeoPoint{Lat: v.Y(), Lon: v.X()}
	case *geom.Polygon:
		if shape != zone.ShapePolygon || v.NumLinearRings() == 0 {
			return g, eris.Errorf("store: polygon stored for %s", shape)
		}
		ring := v.LinearRing(0)
		n := ring.NumCoords() - 1 // drop closing vertex
		g.Vertices = make([]zone.GeoPoint, 0, n)
		for i := 0; i < n; i++ {
			c := ring.Coord(i)
			g.Vertices = append(g.Vertices, zone.GeoPoint{Lat: c.Y(), Lon: c.X()})
		}
	default:
		return g, eris.Errorf("store: unexpected geometry %T", t)
	}
	return g, nil
}
