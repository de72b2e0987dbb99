package workbooks

import (
	"bytes"
	"encoding/csv"
)

// CSV renders a sheet as CSV: one record per row from row 1 to the last
// row with content, each with one field per column up to the widest row.
// Short rows are padded with empty fields rather than trimmed.
func (d *Document) CSV(sheet string) ([]byte, error) {
	rows, cols, err := d.Extent(sheet)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = true

	record := make([]string, cols)
	for row := 1; row <= rows; row++ {
		span := Span{FromCol: 1, FromRow: row, ToCol: cols, ToRow: row}
		err := d.Walk(sheet, span, func(col, _ int, v Value) error {
			record[col-1] = v.String()
			return nil
		})
		if err != nil {
			return nil, err
		}

		// A lone empty field would otherwise be written as a blank line.
		if cols == 1 && record[0] == "" {
			w.Flush()
			buf.WriteString("\"\"\r\n")
			continue
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
