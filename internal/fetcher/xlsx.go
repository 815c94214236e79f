package fetcher

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
)

// XLSXOptions selects a worksheet and controls cell cleanup.
type XLSXOptions struct {
	SheetIndex int
	SheetName  string // matched case-insensitively; overrides SheetIndex
	TrimSpace  bool
}

// ReadXLSX returns the rows of one worksheet, header included. Cells are
// rendered with their number format applied and trailing empty cells are
// dropped, so rows may be shorter than the header. Blank rows are kept as
// empty slices to preserve row numbering.
func ReadXLSX(path string, opts XLSXOptions) ([][]string, error) {
	wb, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	sheet, err := pickSheet(wb, opts)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, r := range sheet.Rows {
		if r == nil {
			continue
		}
		rows = append(rows, cellStrings(r, opts.TrimSpace))
	}

	zap.L().Debug("xlsx: sheet read",
		zap.String("path", path),
		zap.String("sheet", sheet.Name),
		zap.Int("rows", len(rows)),
	)
	return rows, nil
}

func pickSheet(wb *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if name := strings.TrimSpace(opts.SheetName); name != "" {
		if s, ok := wb.Sheet[name]; ok {
			return s, nil
		}
		for _, s := range wb.Sheets {
			if strings.EqualFold(s.Name, name) {
				return s, nil
			}
		}
		return nil, eris.Errorf("xlsx: no sheet named %q", name)
	}

	if opts.SheetIndex < 0 || opts.SheetIndex >= len(wb.Sheets) {
		return nil, eris.Errorf("xlsx: sheet %d requested, workbook has %d", opts.SheetIndex, len(wb.Sheets))
	}
	return wb.Sheets[opts.SheetIndex], nil
}

func cellStrings(r *xlsx.Row, trim bool) []string {
	out := make([]string, len(r.Cells))
	for i, c := range r.Cells {
		if c == nil {
			continue
		}
		v, err := c.FormattedValue()
		if err != nil {
			v = c.Value
		}
		if trim {
			v = strings.TrimSpace(v)
		}
		out[i] = v
	}

	n := len(out)
	for n > 0 && out[n-1] == "" {
		n--
	}
	return out[:n]
}
