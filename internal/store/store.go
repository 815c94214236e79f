// Package store persists imported UAS zone datasets in SQLite or Postgres.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/airzone/internal/config"
	"github.com/sells-group/airzone/internal/zone"
)

// Import describes one persisted dataset load.
type Import struct {
	ID        string    `json:"id" yaml:"id"`
	Source    string    `json:"source" yaml:"source"`
	Zones     int       `json:"zones" yaml:"zones"`
	Parsed    int       `json:"parsed" yaml:"parsed"`
	Unparsed  int       `json:"unparsed" yaml:"unparsed"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Store defines the persistence interface for zone imports.
type Store interface {
	// SaveImport stores records under a new import. Unparsed records are
	// kept with their skip reason and no geometry.
	SaveImport(ctx context.Context, source string, recs []zone.Record) (*Import, error)

	// LatestImport returns the newest import, or nil when none exist.
	LatestImport(ctx context.Context) (*Import, error)

	// ListZones returns an import's records in row order.
	ListZones(ctx context.Context, importID string) ([]zone.Record, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the configured driver and applies migrations.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		st  Store
		err error
	)
	switch cfg.Driver {
	case "", "sqlite":
		st, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		st, err = NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func countParsed(recs []zone.Record) (parsed, unparsed int) {
	for _, r := range recs {
		if r.Geometry.Parsed() {
			parsed++
		} else {
			unparsed++
		}
	}
	return parsed, unparsed
}

// zoneColumns is the column order shared by both drivers.
var zoneColumns = []string{
	"id", "import_id", "row_num", "code", "location", "extent", "altitude", "note",
	"shape", "radius_m", "radius_defaulted", "dropped_vertices", "skip_reason", "geom",
}

// zoneRow flattens a record for insertion; the id is supplied by the caller.
func zoneRow(id, importID string, rec zone.Record) ([]any, error) {
	g := rec.Geometry
	wkb, err := EncodeGeometry(g)
	if err != nil {
		return nil, eris.Wrapf(err, "store: encode row %d", rec.Row)
	}
	return []any{
		id, importID, rec.Row, rec.Code, rec.Location, rec.Extent, rec.Altitude, rec.Note,
		g.Shape.String(), g.RadiusMeters, g.RadiusDefaulted, g.DroppedVertices, g.Skip.String(), wkb,
	}, nil
}

// scanned holds the raw column values of one zone row.
type scanned struct {
	row             int
	code            string
	location        string
	extent          string
	altitude        string
	note            string
	shape           string
	radius          float64
	radiusDefaulted bool
	dropped         int
	skip            string
	wkb             []byte
}

func (s *scanned) dest() []any {
	return []any{
		&s.row, &s.code, &s.location, &s.extent, &s.altitude, &s.note,
		&s.shape, &s.radius, &s.radiusDefaulted, &s.dropped, &s.skip, &s.wkb,
	}
}

func (s *scanned) record() (zone.Record, error) {
	shape, err := zone.ParseShape(s.shape)
	if err != nil {
		return zone.Record{}, err
	}
	skip, err := zone.ParseSkipReason(s.skip)
	if err != nil {
		return zone.Record{}, err
	}
	g, err := DecodeGeometry(shape, s.wkb)
	if err != nil {
		return zone.Record{}, eris.Wrapf(err, "store: decode row %d", s.row)
	}
	g.RadiusMeters = s.radius
	g.RadiusDefaulted = s.radiusDefaulted
	g.DroppedVertices = s.dropped
	g.Skip = skip

	return zone.Record{
		Row:      s.row,
		Code:     s.code,
		Location: s.location,
		Extent:   s.extent,
		Altitude: s.altitude,
		Note:     s.note,
		Geometry: g,
	}, nil
}

const selectZones = `SELECT row_num, code, location, extent, altitude, note, shape, radius_m, radius_defaulted, dropped_vertices, skip_reason, geom FROM zones`
