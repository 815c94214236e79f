package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/airzone/internal/db"
	"github.com/sells-group/airzone/internal/zone"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS imports (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	zones      INTEGER NOT NULL DEFAULT 0,
	parsed     INTEGER NOT NULL DEFAULT 0,
	unparsed   INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
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
	radius_m         DOUBLE PRECISION NOT NULL DEFAULT 0,
	radius_defaulted BOOLEAN NOT NULL DEFAULT false,
	dropped_vertices INTEGER NOT NULL DEFAULT 0,
	skip_reason      TEXT NOT NULL DEFAULT '',
	geom             BYTEA
);

CREATE INDEX IF NOT EXISTS idx_imports_created_at ON imports(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_zones_import_row ON zones(import_id, row_num);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveImport(ctx context.Context, source string, recs []zone.Record) (*Import, error) {
	parsed, unparsed := countParsed(recs)
	imp := &Import{
		ID:        uuid.New().String(),
		Source:    source,
		Zones:     len(recs),
		Parsed:    parsed,
		Unparsed:  unparsed,
		CreatedAt: time.Now().UTC(),
	}

	rows := make([][]any, 0, len(recs))
	for _, rec := range recs {
		row, err := zoneRow(uuid.New().String(), imp.ID, rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin import")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO imports (id, source, zones, parsed, unparsed, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		imp.ID, imp.Source, imp.Zones, imp.Parsed, imp.Unparsed, imp.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert import")
	}

	if _, err := db.CopyFrom(ctx, tx, "zones", zoneColumns, rows); err != nil {
		return nil, eris.Wrap(err, "postgres: copy zones")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit import")
	}
	return imp, nil
}

func (s *PostgresStore) LatestImport(ctx context.Context) (*Import, error) {
	var imp Import
	err := s.pool.QueryRow(ctx,
		`SELECT id, source, zones, parsed, unparsed, created_at FROM imports ORDER BY created_at DESC LIMIT 1`,
	).Scan(&imp.ID, &imp.Source, &imp.Zones, &imp.Parsed, &imp.Unparsed, &imp.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest import")
	}
	return &imp, nil
}

func (s *PostgresStore) ListZones(ctx context.Context, importID string) ([]zone.Record, error) {
	rows, err := s.pool.Query(ctx, selectZones+` WHERE import_id = $1 ORDER BY row_num`, importID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list zones")
	}
	defer rows.Close()

	var recs []zone.Record
	for rows.Next() {
		var sc scanned
		if err := rows.Scan(sc.dest()...); err != nil {
			return nil, eris.Wrap(err, "postgres: scan zone")
		}
		rec, err := sc.record()
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, eris.Wrap(rows.Err(), "postgres: list zones iterate")
}
