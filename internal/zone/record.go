package zone

// Record pairs a parsed extent with the passthrough fields of its source
// row. Altitude and Note are copied verbatim, never parsed.
type Record struct {
	Row      int      `json:"row" yaml:"row"`
	Code     string   `json:"code" yaml:"code"`
	Location string   `json:"location" yaml:"location"`
	Extent   string   `json:"extent" yaml:"extent"`
	Altitude string   `json:"altitude" yaml:"altitude"`
	Note     string   `json:"note,omitempty" yaml:"note,omitempty"`
	Geometry Geometry `json:"geometry" yaml:"geometry"`
}

// NewRecord classifies extent and attaches the passthrough fields.
func NewRecord(row int, code, location, extent, altitude, note string) Record {
	return Record{
		Row:      row,
		Code:     code,
		Location: location,
		Extent:   extent,
		Altitude: altitude,
		Note:     note,
		Geometry: ClassifyExtent(extent),
	}
}

// Label returns the display name used for popups and exports.
func (r Record) Label() string {
	switch {
	case r.Code != "" && r.Location != "":
		return r.Code + " " + r.Location
	case r.Code != "":
		return r.Code
	default:
		return r.Location
	}
}
