package zone

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// RadiusMarker is the keyword ("radius") that marks a circular extent.
const RadiusMarker = "반경"

// DefaultRadiusKm applies when a circular extent has no readable radius.
const DefaultRadiusKm = 1.0

const polygonSeparator = "-"

// minPolygonVertices is the smallest vertex count that encloses an area.
const minPolygonVertices = 3

var radiusRe = regexp.MustCompile(`(?i)` + RadiusMarker + `\s*(\d+(?:\.\d+)?)\s*KM`)

// Shape tags the variant held by a Geometry.
type Shape int

const (
	ShapeUnparsed Shape = iota
	ShapeCircle
	ShapePolygon
)

func (s Shape) String() string {
	switch s {
	case ShapeCircle:
		return "circle"
	case ShapePolygon:
		return "polygon"
	default:
		return "unparsed"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Shape) UnmarshalText(b []byte) error {
	v, err := ParseShape(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseShape is the inverse of Shape.String.
func ParseShape(name string) (Shape, error) {
	for _, s := range []Shape{ShapeUnparsed, ShapeCircle, ShapePolygon} {
		if s.String() == name {
			return s, nil
		}
	}
	return ShapeUnparsed, eris.Errorf("zone: unknown shape %q", name)
}

// SkipReason explains why an extent produced no geometry.
type SkipReason int

const (
	SkipNone SkipReason = iota
	SkipEmpty
	SkipNoShape
	SkipBadCenter
	SkipTooFewVertices
)

func (r SkipReason) String() string {
	switch r {
	case SkipNone:
		return ""
	case SkipEmpty:
		return "empty extent"
	case SkipNoShape:
		return "no radius marker or vertex separator"
	case SkipBadCenter:
		return "unreadable circle center"
	case SkipTooFewVertices:
		return "fewer than 3 readable vertices"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r SkipReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *SkipReason) UnmarshalText(b []byte) error {
	v, err := ParseSkipReason(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// ParseSkipReason is the inverse of SkipReason.String.
func ParseSkipReason(text string) (SkipReason, error) {
	for r := SkipNone; r <= SkipTooFewVertices; r++ {
		if r.String() == text {
			return r, nil
		}
	}
	return SkipNone, eris.Errorf("zone: unknown skip reason %q", text)
}

// Geometry is the parsed form of one extent descriptor. Exactly one of the
// circle fields or Vertices is meaningful, selected by Shape.
type Geometry struct {
	Shape Shape `json:"shape" yaml:"shape"`

	Center          GeoPoint `json:"center,omitempty" yaml:"center,omitempty"`
	RadiusMeters    float64  `json:"radius_m,omitempty" yaml:"radius_m,omitempty"`
	RadiusDefaulted bool     `json:"radius_defaulted,omitempty" yaml:"radius_defaulted,omitempty"`

	Vertices        []GeoPoint `json:"vertices,omitempty" yaml:"vertices,omitempty"`
	DroppedVertices int        `json:"dropped_vertices,omitempty" yaml:"dropped_vertices,omitempty"`

	Skip SkipReason `json:"skip,omitempty" yaml:"skip,omitempty"`
}

// MarshalJSON writes center only for circles.
func (g Geometry) MarshalJSON() ([]byte, error) {
	type plain Geometry
	out := struct {
		plain
		Center *GeoPoint `json:"center,omitempty"`
	}{plain: plain(g)}
	if g.Shape == ShapeCircle {
		c := g.Center
		out.Center = &c
	}
	return json.Marshal(out)
}

// Parsed reports whether the geometry is renderable.
func (g Geometry) Parsed() bool {
	return g.Shape != ShapeUnparsed
}

func unparsed(reason SkipReason) Geometry {
	return Geometry{Shape: ShapeUnparsed, Skip: reason}
}

// ClassifyExtent decides whether text describes a circle or a polygon and
// extracts its coordinates. The radius marker takes precedence over the
// vertex separator, so "... 반경 2 KM (A-B)" is a circle.
func ClassifyExtent(text string) Geometry {
	text = strings.TrimSpace(text)
	if text == "" {
		return unparsed(SkipEmpty)
	}

	if strings.Contains(text, RadiusMarker) {
		return classifyCircle(text)
	}
	if strings.Contains(text, polygonSeparator) {
		return classifyPolygon(text)
	}
	return unparsed(SkipNoShape)
}

func classifyCircle(text string) Geometry {
	center, ok := ParseDMS(strings.Fields(text)[0])
	if !ok {
		return unparsed(SkipBadCenter)
	}

	g := Geometry{Shape: ShapeCircle, Center: center}
	km, ok := parseRadiusKm(text)
	if !ok {
		km = DefaultRadiusKm
		g.RadiusDefaulted = true
	}
	g.RadiusMeters = km * 1000
	return g
}

func parseRadiusKm(text string) (float64, bool) {
	m := radiusRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	km, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return km, true
}

func classifyPolygon(text string) Geometry {
	segments := strings.Split(text, polygonSeparator)

	var (
		vertices []GeoPoint
		dropped  int
	)
	for _, seg := range segments {
		p, ok := ParseDMS(strings.TrimSpace(seg))
		if !ok {
			dropped++
			continue
		}
		vertices = append(vertices, p)
	}

	if len(vertices) < minPolygonVertices {
		g := unparsed(SkipTooFewVertices)
		g.DroppedVertices = dropped
		return g
	}
	return Geometry{Shape: ShapePolygon, Vertices: vertices, DroppedVertices: dropped}
}
