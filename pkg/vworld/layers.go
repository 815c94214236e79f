package vworld

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Layer is a VWorld data API layer identifier.
type Layer string

// Airspace layers published by VWorld.
const (
	LayerRestricted Layer = "LT_C_AISRESC" // 비행제한구역
	LayerProhibited Layer = "LT_C_AISPRHC" // 비행금지구역
	LayerATZ        Layer = "LT_C_AISATZC" // 비행장교통구역
)

// Layers returns the airspace layers in display order.
func Layers() []Layer {
	return []Layer{LayerRestricted, LayerProhibited, LayerATZ}
}

// labelProperties are checked in order for a feature's display tag.
var labelProperties = []string{"prh_lbl_1", "res_lbl_1", "atz_lbl_1", "lbl_1", "name"}

// BBox is a WGS84 bounding box.
type BBox struct {
	West  float64 `json:"west" yaml:"west"`
	South float64 `json:"south" yaml:"south"`
	East  float64 `json:"east" yaml:"east"`
	North float64 `json:"north" yaml:"north"`
}

// KoreaBBox covers the Korean peninsula and Jeju.
var KoreaBBox = BBox{West: 124.0, South: 33.0, East: 132.0, North: 39.0}

// ParseBBox parses "west,south,east,north".
func ParseBBox(s string) (BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BBox{}, eris.Errorf("vworld: bbox %q must be west,south,east,north", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BBox{}, eris.Wrapf(err, "vworld: bbox %q", s)
		}
		v[i] = f
	}
	b := BBox{West: v[0], South: v[1], East: v[2], North: v[3]}
	return b, b.Validate()
}

// Validate checks ordering and WGS84 ranges.
func (b BBox) Validate() error {
	if b.West >= b.East || b.South >= b.North {
		return eris.Errorf("vworld: bbox %s is empty or inverted", b)
	}
	if b.West < -180 || b.East > 180 || b.South < -90 || b.North > 90 {
		return eris.Errorf("vworld: bbox %s out of range", b)
	}
	return nil
}

func (b BBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.West, b.South, b.East, b.North)
}

// geomFilter renders the VWorld geomFilter parameter.
func (b BBox) geomFilter() string {
	return "BOX(" + b.String() + ")"
}
