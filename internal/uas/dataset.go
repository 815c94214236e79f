// Package uas reads the UAS flight-zone dataset and classifies each row's
// horizontal extent into circle or polygon geometry.
package uas

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/airzone/internal/fetcher"
	"github.com/sells-group/airzone/internal/zone"
)

// Options configures how a dataset source is read.
type Options struct {
	Columns   Columns
	Encoding  string
	Delimiter rune
	Sheet     string
	TempDir   string
}

// Report is the outcome of reading one dataset. Records holds every row
// with a non-empty extent, parsed or not, in source order.
type Report struct {
	Source      string        `json:"source" yaml:"source"`
	Rows        int           `json:"rows" yaml:"rows"`
	EmptyExtent int           `json:"empty_extent" yaml:"empty_extent"`
	Records     []zone.Record `json:"records" yaml:"records"`
}

// Renderable returns the records that carry circle or polygon geometry.
func (r *Report) Renderable() []zone.Record {
	out := make([]zone.Record, 0, len(r.Records))
	for _, rec := range r.Records {
		if rec.Geometry.Parsed() {
			out = append(out, rec)
		}
	}
	return out
}

// Unparsed returns the records whose extent produced no geometry.
func (r *Report) Unparsed() []zone.Record {
	var out []zone.Record
	for _, rec := range r.Records {
		if !rec.Geometry.Parsed() {
			out = append(out, rec)
		}
	}
	return out
}

// Summary counts records per shape and per skip reason.
type Summary struct {
	Rows        int                     `json:"rows" yaml:"rows"`
	EmptyExtent int                     `json:"empty_extent" yaml:"empty_extent"`
	Circles     int                     `json:"circles" yaml:"circles"`
	Polygons    int                     `json:"polygons" yaml:"polygons"`
	Unparsed    int                     `json:"unparsed" yaml:"unparsed"`
	Reasons     map[zone.SkipReason]int `json:"reasons,omitempty" yaml:"reasons,omitempty"`
}

// Summarize tallies the report.
func (r *Report) Summarize() Summary {
	s := Summary{Rows: r.Rows, EmptyExtent: r.EmptyExtent, Reasons: map[zone.SkipReason]int{}}
	for _, rec := range r.Records {
		switch rec.Geometry.Shape {
		case zone.ShapeCircle:
			s.Circles++
		case zone.ShapePolygon:
			s.Polygons++
		default:
			s.Unparsed++
			s.Reasons[rec.Geometry.Skip]++
		}
	}
	return s
}

// Parse classifies table rows. The first row is the header. Rows with an
// empty horizontal extent are counted and skipped before classification.
func Parse(rows [][]string, cols Columns) (*Report, error) {
	if len(rows) == 0 {
		return nil, eris.New("uas: empty dataset")
	}
	cols = cols.orDefault()

	idx, err := resolveColumns(rows[0], cols)
	if err != nil {
		return nil, err
	}
	if idx.code < 0 || idx.location < 0 || idx.vertical < 0 {
		zap.L().Warn("uas: dataset is missing optional columns",
			zap.Bool("code", idx.code >= 0),
			zap.Bool("location", idx.location >= 0),
			zap.Bool("vertical", idx.vertical >= 0),
		)
	}

	report := &Report{Records: make([]zone.Record, 0, len(rows)-1)}
	for i, row := range rows[1:] {
		report.Rows++
		rowNum := i + 2 // 1-based, header is row 1

		extent := cell(row, idx.horizontal)
		if extent == "" {
			report.EmptyExtent++
			continue
		}

		rec := zone.NewRecord(rowNum,
			cell(row, idx.code),
			cell(row, idx.location),
			extent,
			cell(row, idx.vertical),
			cell(row, idx.note),
		)
		logRecord(rec)
		report.Records = append(report.Records, rec)
	}

	return report, nil
}

func logRecord(rec zone.Record) {
	g := rec.Geometry
	switch {
	case !g.Parsed():
		zap.L().Debug("uas: row skipped",
			zap.Int("row", rec.Row),
			zap.String("code", rec.Code),
			zap.String("reason", g.Skip.String()),
			zap.String("extent", rec.Extent),
		)
	case g.Shape == zone.ShapeCircle && !g.Center.InRange():
		zap.L().Warn("uas: circle center out of range",
			zap.Int("row", rec.Row),
			zap.String("code", rec.Code),
			zap.Float64("lat", g.Center.Lat),
			zap.Float64("lon", g.Center.Lon),
		)
	case g.DroppedVertices > 0:
		zap.L().Debug("uas: dropped unreadable vertices",
			zap.Int("row", rec.Row),
			zap.String("code", rec.Code),
			zap.Int("dropped", g.DroppedVertices),
		)
	}
}

// Load reads src (local .csv/.xlsx path or http(s) URL) and parses it.
func Load(ctx context.Context, f fetcher.Fetcher, src string, opts Options) (*Report, error) {
	rows, err := readRows(ctx, f, src, opts)
	if err != nil {
		return nil, err
	}

	report, err := Parse(rows, opts.Columns)
	if err != nil {
		return nil, eris.Wrapf(err, "uas: parse %s", src)
	}
	report.Source = src

	s := report.Summarize()
	zap.L().Info("uas: dataset loaded",
		zap.String("source", src),
		zap.Int("rows", s.Rows),
		zap.Int("circles", s.Circles),
		zap.Int("polygons", s.Polygons),
		zap.Int("unparsed", s.Unparsed),
		zap.Int("empty_extent", s.EmptyExtent),
	)
	return report, nil
}

func readRows(ctx context.Context, f fetcher.Fetcher, src string, opts Options) ([][]string, error) {
	if fetcher.Ext(src) == ".xlsx" {
		dir := opts.TempDir
		if dir == "" {
			dir = os.TempDir()
		}
		path, cleanup, err := fetcher.Localize(ctx, f, src, dir)
		if err != nil {
			return nil, eris.Wrap(err, "uas: fetch xlsx")
		}
		defer cleanup()
		return fetcher.ReadXLSX(path, fetcher.XLSXOptions{SheetName: opts.Sheet, TrimSpace: true})
	}

	rc, err := fetcher.Open(ctx, f, src)
	if err != nil {
		return nil, eris.Wrap(err, "uas: open source")
	}
	defer rc.Close() //nolint:errcheck

	return fetcher.ReadCSV(ctx, rc, fetcher.CSVOptions{
		Delimiter:  opts.Delimiter,
		Encoding:   opts.Encoding,
		LazyQuotes: true,
		TrimSpace:  true,
	})
}
