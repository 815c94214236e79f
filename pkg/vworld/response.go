package vworld

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Response status values.
const (
	StatusOK       = "OK"
	StatusNotFound = "NOT_FOUND"
	StatusError    = "ERROR"
)

type envelope struct {
	Response struct {
		Status string `json:"status"`
		Record struct {
			Total   flexInt `json:"total"`
			Current flexInt `json:"current"`
		} `json:"record"`
		Error *struct {
			Level string `json:"level"`
			Code  string `json:"code"`
			Text  string `json:"text"`
		} `json:"error"`
		Result *struct {
			FeatureCollection *rawCollection `json:"featureCollection"`
		} `json:"result"`
	} `json:"response"`
}

type rawCollection struct {
	Features []rawFeature `json:"features"`
}

// rawFeature tolerates numeric or string ids.
type rawFeature struct {
	ID         json.RawMessage        `json:"id"`
	Geometry   json.RawMessage        `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// flexInt accepts 12 and "12"; VWorld sends counts as strings.
type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(string(b))
	if err != nil {
		return err
	}
	*n = flexInt(v)
	return nil
}

// Feature is one decoded VWorld feature.
type Feature struct {
	ID         string
	Label      string
	Geometry   geom.T
	Properties map[string]interface{}
}

// FeatureSet is the decoded result of one GetFeature call.
type FeatureSet struct {
	Layer    Layer
	Total    int
	Features []Feature
}

// Empty reports whether the set has no features.
func (fs *FeatureSet) Empty() bool {
	return fs == nil || len(fs.Features) == 0
}

// decodeFeatureSet interprets a GetFeature body. NOT_FOUND and a missing
// collection are an empty set.
func decodeFeatureSet(layer Layer, body []byte) (*FeatureSet, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, eris.Wrap(err, "vworld: parse response")
	}
	r := env.Response

	fs := &FeatureSet{Layer: layer, Total: int(r.Record.Total)}
	switch r.Status {
	case StatusOK:
	case StatusNotFound:
		return fs, nil
	case StatusError:
		if r.Error != nil {
			return nil, eris.Errorf("vworld: %s: %s (%s)", layer, r.Error.Text, r.Error.Code)
		}
		return nil, eris.Errorf("vworld: %s: error response", layer)
	default:
		return nil, eris.Errorf("vworld: %s: unexpected status %q", layer, r.Status)
	}

	if r.Result == nil || r.Result.FeatureCollection == nil {
		return fs, nil
	}

	for i, rf := range r.Result.FeatureCollection.Features {
		f, err := decodeFeature(rf)
		if err != nil {
			return nil, eris.Wrapf(err, "vworld: %s feature %d", layer, i)
		}
		fs.Features = append(fs.Features, f)
	}
	if fs.Total == 0 {
		fs.Total = len(fs.Features)
	}
	return fs, nil
}

func decodeFeature(rf rawFeature) (Feature, error) {
	f := Feature{Properties: rf.Properties, ID: decodeID(rf.ID)}
	if f.Properties == nil {
		f.Properties = map[string]interface{}{}
	}
	if len(rf.Geometry) > 0 && string(rf.Geometry) != "null" {
		if err := geojson.Unmarshal(rf.Geometry, &f.Geometry); err != nil {
			return Feature{}, eris.Wrap(err, "decode geometry")
		}
	}
	f.Label = FeatureLabel(f.Properties)
	return f, nil
}

func decodeID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// FeatureLabel returns the first non-empty label property.
func FeatureLabel(props map[string]interface{}) string {
	for _, key := range labelProperties {
		if v, ok := props[key]; ok && v != nil {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
