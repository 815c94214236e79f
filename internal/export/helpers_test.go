package export

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/airzone/internal/overlay"
	"github.com/sells-group/airzone/internal/zone"
)

func mustPolygon(t *testing.T, g zone.Geometry) *geom.Polygon {
	t.Helper()
	p, ok := overlay.RecordPolygon(g, 16)
	require.True(t, ok)
	return p
}
