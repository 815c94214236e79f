package export

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// WriteGeoJSON writes fc as indented GeoJSON.
func WriteGeoJSON(w io.Writer, fc *geojson.FeatureCollection) error {
	if fc.Features == nil {
		fc.Features = []*geojson.Feature{}
	}
	raw, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrap(err, "export: marshal geojson")
	}

	var pretty interface{}
	if err := json.Unmarshal(raw, &pretty); err != nil {
		return eris.Wrap(err, "export: reformat geojson")
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(pretty); err != nil {
		return eris.Wrap(err, "export: write geojson")
	}
	return nil
}
