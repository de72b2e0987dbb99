package workbooks

import (
	"strconv"
	"strings"

	"github.com/vinodismyname/sheettools/pkg/mcperr"
	"github.com/xuri/excelize/v2"
)

// Document is one in-memory workbook, owned by a single request.
type Document struct {
	file    *excelize.File
	release func()
}

// NewDocument wraps an already opened excelize workbook.
func NewDocument(f *excelize.File) *Document {
	return &Document{file: f}
}

// File exposes the underlying excelize workbook.
func (d *Document) File() *excelize.File { return d.file }

// Close releases workbook resources and any decode capacity held for it.
func (d *Document) Close() error {
	if d == nil || d.file == nil {
		return nil
	}
	err := d.file.Close()
	if d.release != nil {
		d.release()
		d.release = nil
	}
	return err
}

// SheetNames lists sheet names in workbook order.
func (d *Document) SheetNames() []string {
	return d.file.GetSheetList()
}

// Sheet returns the exact (case-sensitive) sheet name when present.
func (d *Document) Sheet(name string) (string, error) {
	for _, s := range d.SheetNames() {
		if s == name {
			return s, nil
		}
	}
	return "", mcperr.Newf(mcperr.UnknownSheet, "worksheet %s does not exist", strconv.Quote(name))
}

// ActiveSheet returns the workbook's active sheet: the recorded active tab,
// which is the first sheet unless the workbook says otherwise.
func (d *Document) ActiveSheet() (string, error) {
	sheets := d.SheetNames()
	if len(sheets) == 0 {
		return "", mcperr.New(mcperr.UnknownSheet, "workbook has no worksheets")
	}
	idx := d.file.GetActiveSheetIndex()
	if idx >= 0 && idx < len(sheets) {
		return sheets[idx], nil
	}
	return sheets[0], nil
}

// Value reads the raw value of one cell with no formatting applied.
// Formula cells report their formula text prefixed with "=".
func (d *Document) Value(sheet, cell string) (Value, error) {
	formula, err := d.file.GetCellFormula(sheet, cell)
	if err != nil {
		return Value{}, err
	}
	if formula != "" {
		if !strings.HasPrefix(formula, "=") {
			formula = "=" + formula
		}
		return TextValue(formula), nil
	}

	typ, err := d.file.GetCellType(sheet, cell)
	if err != nil {
		return Value{}, err
	}
	raw, err := d.file.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
	if err != nil {
		return Value{}, err
	}

	switch typ {
	case excelize.CellTypeBool:
		return BoolValue(raw == "1" || strings.EqualFold(raw, "true")), nil
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula,
		excelize.CellTypeDate, excelize.CellTypeError:
		return TextValue(raw), nil
	default:
		// Numbers are usually stored without an explicit type.
		if raw == "" {
			return EmptyValue(), nil
		}
		if v, ok := numberFromRaw(raw); ok {
			return v, nil
		}
		return TextValue(raw), nil
	}
}

// SetValue writes v into one cell, replacing any formula it held.
func (d *Document) SetValue(sheet, cell string, v Value) error {
	switch v.Kind {
	case KindNumber:
		return d.file.SetCellFloat(sheet, cell, v.Number, -1, 64)
	case KindBool:
		return d.file.SetCellBool(sheet, cell, v.Bool)
	case KindText:
		return d.file.SetCellStr(sheet, cell, v.Text)
	default:
		return d.file.SetCellDefault(sheet, cell, "")
	}
}

// Extent returns the number of rows and columns spanned by the sheet's
// content, counting from A1.
func (d *Document) Extent(sheet string) (rows, cols int, err error) {
	grid, err := d.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return 0, 0, err
	}
	rows = len(grid)
	for _, r := range grid {
		if len(r) > cols {
			cols = len(r)
		}
	}
	return rows, cols, nil
}
