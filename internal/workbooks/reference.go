package workbooks

import (
	"strconv"
	"strings"

	"github.com/vinodismyname/sheettools/pkg/mcperr"
	"github.com/xuri/excelize/v2"
)

// Reference is a sheet-qualified address such as Sheet1!A1:B10.
type Reference struct {
	Sheet   string
	Address string
}

func (r Reference) String() string { return r.Sheet + "!" + r.Address }

// ParseReference splits ref on its first "!". The address itself is not
// validated here; resolution against a Document does that.
func ParseReference(ref string) (Reference, error) {
	sheet, addr, ok := strings.Cut(ref, "!")
	if !ok {
		return Reference{}, mcperr.Newf(mcperr.InvalidReference, "invalid range format %s, expected 'SheetName!A1:B10'", strconv.Quote(ref))
	}
	// Excel quotes sheet names containing spaces; names never start or end with an apostrophe.
	if len(sheet) >= 2 && strings.HasPrefix(sheet, "'") && strings.HasSuffix(sheet, "'") {
		sheet = strings.ReplaceAll(sheet[1:len(sheet)-1], "''", "'")
	}
	return Reference{Sheet: sheet, Address: addr}, nil
}

// Span is an inclusive, normalised rectangle of 1-based coordinates.
type Span struct {
	FromCol, FromRow int
	ToCol, ToRow     int
}

// Single reports whether the span covers exactly one cell.
func (s Span) Single() bool { return s.FromCol == s.ToCol && s.FromRow == s.ToRow }

// Empty reports whether the span covers no cells.
func (s Span) Empty() bool { return s.ToCol < s.FromCol || s.ToRow < s.FromRow }

// Size returns the number of cells covered.
func (s Span) Size() int {
	if s.Empty() {
		return 0
	}
	return (s.ToCol - s.FromCol + 1) * (s.ToRow - s.FromRow + 1)
}

// Clip bounds the span to the first rows x cols cells of a sheet.
func (s Span) Clip(rows, cols int) Span {
	if s.ToRow > rows {
		s.ToRow = rows
	}
	if s.ToCol > cols {
		s.ToCol = cols
	}
	return s
}

func (s Span) String() string {
	from, _ := excelize.CoordinatesToCellName(s.FromCol, s.FromRow)
	if s.Single() {
		return from
	}
	to, _ := excelize.CoordinatesToCellName(s.ToCol, s.ToRow)
	return from + ":" + to
}

// Resolve checks the sheet exists and parses the address into a span.
// Whole-column (A:C) and whole-row (2:4) spans are bounded by the sheet's content.
func (d *Document) Resolve(ref Reference) (string, Span, error) {
	sheet, err := d.Sheet(ref.Sheet)
	if err != nil {
		return "", Span{}, err
	}
	span, err := parseAddress(ref.Address, func() (int, int, error) { return d.Extent(sheet) })
	if err != nil {
		return "", Span{}, err
	}
	return sheet, span, nil
}

// Walk visits every cell of span in row-major order: rows top to bottom and,
// within a row, columns left to right.
func (d *Document) Walk(sheet string, span Span, fn func(col, row int, v Value) error) error {
	for row := span.FromRow; row <= span.ToRow; row++ {
		for col := span.FromCol; col <= span.ToCol; col++ {
			name, err := excelize.CoordinatesToCellName(col, row)
			if err != nil {
				return mcperr.Wrap(mcperr.InvalidAddress, err)
			}
			v, err := d.Value(sheet, name)
			if err != nil {
				return err
			}
			if err := fn(col, row, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// Cells resolves ref and returns its values in row-major order.
func (d *Document) Cells(ref Reference) ([]Value, error) {
	sheet, span, err := d.Resolve(ref)
	if err != nil {
		return nil, err
	}
	out := make([]Value, 0, span.Size())
	err = d.Walk(sheet, span, func(_, _ int, v Value) error {
		out = append(out, v)
		return nil
	})
	return out, err
}

// Cell resolves ref to exactly one cell and returns its value.
func (d *Document) Cell(ref Reference) (Value, error) {
	sheet, name, err := d.CellName(ref)
	if err != nil {
		return Value{}, err
	}
	return d.Value(sheet, name)
}

// CellName resolves ref to exactly one cell and returns the sheet and
// canonical cell name (absolute markers removed).
func (d *Document) CellName(ref Reference) (string, string, error) {
	sheet, err := d.Sheet(ref.Sheet)
	if err != nil {
		return "", "", err
	}
	col, row, err := parseCell(ref.Address)
	if err != nil {
		return "", "", err
	}
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", "", mcperr.Wrap(mcperr.InvalidAddress, err)
	}
	return sheet, name, nil
}

func invalidAddress(addr string) error {
	return mcperr.Newf(mcperr.InvalidAddress, "invalid cell or range address %s", strconv.Quote(addr))
}

func parseCell(addr string) (int, int, error) {
	a := strings.ReplaceAll(strings.TrimSpace(addr), "$", "")
	if a == "" || strings.Contains(a, ":") {
		return 0, 0, invalidAddress(addr)
	}
	col, row, err := excelize.CellNameToCoordinates(a)
	if err != nil {
		return 0, 0, invalidAddress(addr)
	}
	return col, row, nil
}

// parseAddress accepts B2, A1:B10, A:C and 2:4 forms. extent is only
// consulted for whole-column or whole-row spans.
func parseAddress(addr string, extent func() (int, int, error)) (Span, error) {
	a := strings.ReplaceAll(strings.TrimSpace(addr), "$", "")
	if a == "" {
		return Span{}, invalidAddress(addr)
	}
	left, right, isRange := strings.Cut(a, ":")
	if !isRange {
		col, row, err := parseCell(a)
		if err != nil {
			return Span{}, invalidAddress(addr)
		}
		return Span{FromCol: col, FromRow: row, ToCol: col, ToRow: row}, nil
	}
	if strings.Contains(right, ":") {
		return Span{}, invalidAddress(addr)
	}

	if c1, r1, err := excelize.CellNameToCoordinates(left); err == nil {
		c2, r2, err := excelize.CellNameToCoordinates(right)
		if err != nil {
			return Span{}, invalidAddress(addr)
		}
		return normalize(c1, r1, c2, r2), nil
	}

	if c1, err := columnNumber(left); err == nil {
		c2, err := columnNumber(right)
		if err != nil {
			return Span{}, invalidAddress(addr)
		}
		rows, _, err := extent()
		if err != nil {
			return Span{}, err
		}
		s := normalize(c1, 1, c2, 1)
		s.ToRow = rows
		return s, nil
	}

	r1, err1 := rowNumber(left)
	r2, err2 := rowNumber(right)
	if err1 != nil || err2 != nil {
		return Span{}, invalidAddress(addr)
	}
	_, cols, err := extent()
	if err != nil {
		return Span{}, err
	}
	s := normalize(1, r1, 1, r2)
	s.ToCol = cols
	return s, nil
}

func columnNumber(s string) (int, error) {
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return 0, invalidAddress(s)
		}
	}
	return excelize.ColumnNameToNumber(s)
}

func rowNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > excelize.TotalRows {
		return 0, invalidAddress(s)
	}
	return n, nil
}

func normalize(c1, r1, c2, r2 int) Span {
	if c2 < c1 {
		c1, c2 = c2, c1
	}
	if r2 < r1 {
		r1, r2 = r2, r1
	}
	return Span{FromCol: c1, FromRow: r1, ToCol: c2, ToRow: r2}
}
