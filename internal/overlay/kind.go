// Package overlay builds map overlays (GeoJSON feature collections with a
// style) for the airspace layers and tracks which overlays are active.
package overlay

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/airzone/internal/config"
	"github.com/sells-group/airzone/pkg/vworld"
)

// Kind identifies an overlay layer.
type Kind string

// Overlay kinds.
const (
	KindRestricted Kind = "restricted"
	KindProhibited Kind = "prohibited"
	KindATZ        Kind = "atz"
	KindUAS        Kind = "uas"
)

// Kinds returns every kind in display order.
func Kinds() []Kind {
	return []Kind{KindRestricted, KindProhibited, KindATZ, KindUAS}
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", eris.Errorf("overlay: unknown kind %q", s)
}

var kindLabels = map[Kind]string{
	KindRestricted: "비행제한구역",
	KindProhibited: "비행금지구역",
	KindATZ:        "비행장교통구역",
	KindUAS:        "초경량비행장치 비행구역",
}

// Label returns the Korean display name.
func (k Kind) Label() string {
	return kindLabels[k]
}

// Layer returns the VWorld layer backing k. UAS zones have none.
func (k Kind) Layer() (vworld.Layer, bool) {
	switch k {
	case KindRestricted:
		return vworld.LayerRestricted, true
	case KindProhibited:
		return vworld.LayerProhibited, true
	case KindATZ:
		return vworld.LayerATZ, true
	default:
		return "", false
	}
}

// Style is the path style a map client applies to an overlay.
type Style struct {
	Color       string  `json:"color" yaml:"color"`
	Weight      float64 `json:"weight" yaml:"weight"`
	FillOpacity float64 `json:"fillOpacity" yaml:"fill_opacity"`
}

var defaultColors = map[Kind]string{
	KindRestricted: "#f90",
	KindProhibited: "#d00",
	KindATZ:        "#06c",
	KindUAS:        "#2a2",
}

// DefaultStyle returns the built-in style for k.
func DefaultStyle(k Kind) Style {
	return Style{Color: defaultColors[k], Weight: 1, FillOpacity: 0.3}
}

// Styles maps each kind to its effective style.
type Styles map[Kind]Style

// NewStyles applies configured overrides on top of the defaults. Zero
// fields in an override keep the default value.
func NewStyles(overrides map[string]config.StyleConfig) Styles {
	s := make(Styles, len(Kinds()))
	for _, k := range Kinds() {
		st := DefaultStyle(k)
		if o, ok := overrides[string(k)]; ok {
			if o.Color != "" {
				st.Color = o.Color
			}
			if o.Weight > 0 {
				st.Weight = o.Weight
			}
			if o.FillOpacity > 0 {
				st.FillOpacity = o.FillOpacity
			}
		}
		s[k] = st
	}
	return s
}

// For returns the style for k, falling back to the default.
func (s Styles) For(k Kind) Style {
	if st, ok := s[k]; ok {
		return st
	}
	return DefaultStyle(k)
}
