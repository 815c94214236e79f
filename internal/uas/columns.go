package uas

import (
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"
)

// Columns lists the accepted header names for each dataset field.
type Columns struct {
	Code       []string
	Location   []string
	Horizontal []string
	Vertical   []string
	Note       []string
}

// DefaultColumns returns English and Korean header aliases.
func DefaultColumns() Columns {
	return Columns{
		Code:       []string{"code", "구역코드", "식별코드", "코드"},
		Location:   []string{"location", "name", "구역명", "위치", "명칭"},
		Horizontal: []string{"horizontal", "horizontal_extent", "수평범위"},
		Vertical:   []string{"vertical", "vertical_extent", "altitude", "수직범위", "고도"},
		Note:       []string{"note", "비고"},
	}
}

// orDefault fills empty alias lists from DefaultColumns.
func (c Columns) orDefault() Columns {
	def := DefaultColumns()
	if len(c.Code) == 0 {
		c.Code = def.Code
	}
	if len(c.Location) == 0 {
		c.Location = def.Location
	}
	if len(c.Horizontal) == 0 {
		c.Horizontal = def.Horizontal
	}
	if len(c.Vertical) == 0 {
		c.Vertical = def.Vertical
	}
	if len(c.Note) == 0 {
		c.Note = def.Note
	}
	return c
}

// columnIndex holds resolved header positions; -1 means absent.
type columnIndex struct {
	code, location, horizontal, vertical, note int
}

// headerKey normalizes a header cell: NFC, lowercase, without whitespace,
// underscores or hyphens.
// Spreadsheets saved on macOS often carry decomposed Hangul.
func headerKey(s string) string {
	s = norm.NFC.String(s)
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '_' || r == '-' {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

func resolveColumns(header []string, cols Columns) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		k := headerKey(h)
		if _, dup := pos[k]; !dup {
			pos[k] = i
		}
	}

	find := func(aliases []string) int {
		for _, a := range aliases {
			if i, ok := pos[headerKey(a)]; ok {
				return i
			}
		}
		return -1
	}

	idx := columnIndex{
		code:       find(cols.Code),
		location:   find(cols.Location),
		horizontal: find(cols.Horizontal),
		vertical:   find(cols.Vertical),
		note:       find(cols.Note),
	}
	if idx.horizontal < 0 {
		return idx, eris.Errorf("uas: no horizontal extent column (tried %s)", strings.Join(cols.Horizontal, ", "))
	}
	return idx, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
