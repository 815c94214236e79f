package overlay

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/airzone/internal/zone"
	"github.com/sells-group/airzone/pkg/vworld"
)

// VWorldSource loads the airspace kinds from the VWorld data API.
type VWorldSource struct {
	client vworld.Client
}

// NewVWorldSource wraps a VWorld client.
func NewVWorldSource(c vworld.Client) *VWorldSource {
	return &VWorldSource{client: c}
}

// Load fetches the layer behind kind.
func (s *VWorldSource) Load(ctx context.Context, kind Kind, bbox vworld.BBox) (*geojson.FeatureCollection, error) {
	layer, ok := kind.Layer()
	if !ok {
		return nil, eris.Errorf("overlay: kind %s has no vworld layer", kind)
	}
	fs, err := s.client.GetFeatures(ctx, layer, bbox)
	if err != nil {
		return nil, err
	}
	return FromVWorld(fs, kind.Label()), nil
}

// RecordsFunc supplies UAS zone records.
type RecordsFunc func(ctx context.Context) ([]zone.Record, error)

// RecordSource renders UAS zone records, keeping those that overlap bbox.
type RecordSource struct {
	records  RecordsFunc
	segments int
}

// NewRecordSource creates a RecordSource. segments <= 0 uses the default.
func NewRecordSource(fn RecordsFunc, segments int) *RecordSource {
	if segments <= 0 {
		segments = DefaultCircleSegments
	}
	return &RecordSource{records: fn, segments: segments}
}

// Load renders the records.
func (s *RecordSource) Load(ctx context.Context, _ Kind, bbox vworld.BBox) (*geojson.FeatureCollection, error) {
	recs, err := s.records(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "overlay: load uas records")
	}
	return Filter(FromRecords(recs, s.segments), bbox), nil
}

// Router dispatches each kind to its own source.
type Router map[Kind]Source

// Load implements Source.
func (r Router) Load(ctx context.Context, kind Kind, bbox vworld.BBox) (*geojson.FeatureCollection, error) {
	src, ok := r[kind]
	if !ok {
		return nil, eris.Errorf("overlay: no source for %s", kind)
	}
	return src.Load(ctx, kind, bbox)
}
