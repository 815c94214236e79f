package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/airzone/internal/zone"
)

func TestEncodeGeometry_Circle(t *testing.T) {
	g := zone.ClassifyExtent("354421N1270027E 반경 1.8 KM")
	data, err := EncodeGeometry(g)
	require.NoError(t, err)

	decoded, err := ewkb.Unmarshal(data)
	require.NoError(t, err)
	pt, ok := decoded.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, SRID, pt.SRID())
	assert.InDelta(t, 127.0075, pt.X(), 1e-9)
	assert.InDelta(t, 35.7392, pt.Y(), 1e-4)
}

func TestEncodeGeometry_PolygonClosed(t *testing.T) {
	g := zone.ClassifyExtent("354421N1270027E - 354500N1270100E - 354400N1270200E")
	data, err := EncodeGeometry(g)
	require.NoError(t, err)

	decoded, err := ewkb.Unmarshal(data)
	require.NoError(t, err)
	poly, ok := decoded.(*geom.Polygon)
	require.True(t, ok)
	ring := poly.LinearRing(0)
	require.Equal(t, 4, ring.NumCoords())
	assert.Equal(t, ring.Coord(0), ring.Coord(3))
}

func TestEncodeGeometry_Unparsed(t *testing.T) {
	data, err := EncodeGeometry(zone.ClassifyExtent("nothing"))
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestDecodeGeometry_RoundTrip(t *testing.T) {
	for _, in := range []string{
		"354421N1270027E 반경 1.8 KM",
		"354421N1270027E - 354500N1270100E - 354400N1270200E - 354421N1270027E",
	} {
		g := zone.ClassifyExtent(in)
		data, err := EncodeGeometry(g)
		require.NoError(t, err)

		back, err := DecodeGeometry(g.Shape, data)
		require.NoError(t, err)
		assert.Equal(t, g.Center, back.Center, in)
		assert.Equal(t, g.Vertices, back.Vertices, in)
	}
}

func TestDecodeGeometry_Mismatch(t *testing.T) {
	data, err := EncodeGeometry(zone.ClassifyExtent("354421N1270027E 반경 1 KM"))
	require.NoError(t, err)

	_, err = DecodeGeometry(zone.ShapePolygon, data)
	assert.Error(t, err)

	_, err = DecodeGeometry(zone.ShapeCircle, nil)
	assert.Error(t, err)

	_, err = DecodeGeometry(zone.ShapeCircle, []byte{0x01, 0x02})
	assert.Error(t, err)
}
