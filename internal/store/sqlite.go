package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/airzone/internal/zone"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS imports (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	zones      INTEGER NOT NULL DEFAULT 0,
	parsed     INTEGER NOT NULL DEFAULT 0,
	unparsed   INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS zones (
	id               TEXT PRIMARY KEY,
	import_id        TEXT NOT NULL REFERENCES imports(id) ON DELETE CASCADE,
	row_num          INTEGER NOT NULL,
	code             TEXT NOT NULL DEFAULT '',
	location         TEXT NOT NULL DEFAULT '',
	extent           TEXT NOT NULL,
	altitude         TEXT NOT NULL DEFAULT '',
	note             TEXT NOT NULL DEFAULT '',
	shape            TEXT NOT NULL,
	radius_m         REAL NOT NULL DEFAULT 0,
	radius_defaulted INTEGER NOT NULL DEFAULT 0,
	dropped_vertices INTEGER NOT NULL DEFAULT 0,
	skip_reason      TEXT NOT NULL DEFAULT '',
	geom             BLOB
);

CREATE INDEX IF NOT EXISTS idx_imports_created_at ON imports(created_at);
CREATE INDEX IF NOT EXISTS idx_zones_import_row ON zones(import_id, row_num);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveImport(ctx context.Context, source string, recs []zone.Record) (*Import, error) {
	parsed, unparsed := countParsed(recs)
	imp := &Import{
		ID:        uuid.New().String(),
		Source:    source,
		Zones:     len(recs),
		Parsed:    parsed,
		Unparsed:  unparsed,
		CreatedAt: time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin import")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO imports (id, source, zones, parsed, unparsed, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		imp.ID, imp.Source, imp.Zones, imp.Parsed, imp.Unparsed, imp.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert import")
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(zoneColumns)), ", ")
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO zones (`+strings.Join(zoneColumns, ", ")+`) VALUES (`+placeholders+`)`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare zone insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, rec := range recs {
		args, err := zoneRow(uuid.New().String(), imp.ID, rec)
		if err != nil {
			return nil, err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert zone row %d", rec.Row)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit import")
	}
	return imp, nil
}

func (s *SQLiteStore) LatestImport(ctx context.Context) (*Import, error) {
	var imp Import
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source, zones, parsed, unparsed, created_at FROM imports ORDER BY created_at DESC, rowid DESC LIMIT 1`,
	).Scan(&imp.ID, &imp.Source, &imp.Zones, &imp.Parsed, &imp.Unparsed, &imp.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest import")
	}
	return &imp, nil
}

func (s *SQLiteStore) ListZones(ctx context.Context, importID string) ([]zone.Record, error) {
	rows, err := s.db.QueryContext(ctx, selectZones+` WHERE import_id = ? ORDER BY row_num`, importID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list zones")
	}
	defer rows.Close() //nolint:errcheck

	var recs []zone.Record
	for rows.Next() {
		var sc scanned
		if err := rows.Scan(sc.dest()...); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan zone")
		}
		rec, err := sc.record()
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: list zones iterate")
}
