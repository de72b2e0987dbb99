package workbooks

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vinodismyname/sheettools/pkg/mcperr"
	"github.com/xuri/excelize/v2"
)

func TestParseReference(t *testing.T) {
	ref, err := ParseReference("Sheet1!A1:B10")
	require.NoError(t, err)
	require.Equal(t, Reference{Sheet: "Sheet1", Address: "A1:B10"}, ref)
	require.Equal(t, "Sheet1!A1:B10", ref.String())

	// Only the first "!" separates.
	ref, err = ParseReference("Odd!Name!B2")
	require.NoError(t, err)
	require.Equal(t, "Odd", ref.Sheet)
	require.Equal(t, "Name!B2", ref.Address)

	ref, err = ParseReference("'Q1 Sales'!C3")
	require.NoError(t, err)
	require.Equal(t, "Q1 Sales", ref.Sheet)

	ref, err = ParseReference("'Bob''s'!C3")
	require.NoError(t, err)
	require.Equal(t, "Bob's", ref.Sheet)

	for _, bad := range []string{"A1", "", "Sheet1A1:B2"} {
		_, err := ParseReference(bad)
		require.True(t, mcperr.Is(err, mcperr.InvalidReference), "%q: %v", bad, err)
	}
}

func gridDocument(t *testing.T) *Document {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{1, 2, 3}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{4, "five", 6}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{7, 8, 9}))
	doc := NewDocument(f)
	t.Cleanup(func() { _ = doc.Close() })
	return doc
}

func interfaces(vs []Value) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v.Interface()
	}
	return out
}

func TestCells_RowMajorOrder(t *testing.T) {
	doc := gridDocument(t)
	vals, err := doc.Cells(Reference{Sheet: "Sheet1", Address: "A1:B2"})
	require.NoError(t, err)
	require.Equal(t, []any{1.0, 2.0, 4.0, "five"}, interfaces(vals))
}

func TestCells_ReversedAndAbsoluteCorners(t *testing.T) {
	doc := gridDocument(t)
	vals, err := doc.Cells(Reference{Sheet: "Sheet1", Address: "$B$2:A1"})
	require.NoError(t, err)
	require.Equal(t, []any{1.0, 2.0, 4.0, "five"}, interfaces(vals))
}

func TestCells_WholeColumnAndRow(t *testing.T) {
	doc := gridDocument(t)
	vals, err := doc.Cells(Reference{Sheet: "Sheet1", Address: "C:C"})
	require.NoError(t, err)
	require.Equal(t, []any{3.0, 6.0, 9.0}, interfaces(vals))

	vals, err = doc.Cells(Reference{Sheet: "Sheet1", Address: "3:3"})
	require.NoError(t, err)
	require.Equal(t, []any{7.0, 8.0, 9.0}, interfaces(vals))
}

func TestCells_SingleCellAndBeyondContent(t *testing.T) {
	doc := gridDocument(t)
	vals, err := doc.Cells(Reference{Sheet: "Sheet1", Address: "B2"})
	require.NoError(t, err)
	require.Equal(t, []any{"five"}, interfaces(vals))

	vals, err = doc.Cells(Reference{Sheet: "Sheet1", Address: "C3:D4"})
	require.NoError(t, err)
	require.Equal(t, []any{9.0, nil, nil, nil}, interfaces(vals))
}

func TestCells_Errors(t *testing.T) {
	doc := gridDocument(t)

	_, err := doc.Cells(Reference{Sheet: "Nope", Address: "A1"})
	require.True(t, mcperr.Is(err, mcperr.UnknownSheet), "got %v", err)

	for _, addr := range []string{"", "A", "1A", "A1:B2:C3", "A1:?", "ZZZZ1", "A0", "A1048577"} {
		_, err := doc.Cells(Reference{Sheet: "Sheet1", Address: addr})
		require.True(t, mcperr.Is(err, mcperr.InvalidAddress), "%q: %v", addr, err)
	}
}

func TestCell_RejectsSpans(t *testing.T) {
	doc := gridDocument(t)

	v, err := doc.Cell(Reference{Sheet: "Sheet1", Address: "$C$1"})
	require.NoError(t, err)
	require.Equal(t, 3.0, v.Interface())

	_, err = doc.Cell(Reference{Sheet: "Sheet1", Address: "A1:A2"})
	require.True(t, mcperr.Is(err, mcperr.InvalidAddress), "got %v", err)

	_, name, err := doc.CellName(Reference{Sheet: "Sheet1", Address: "b$7"})
	require.NoError(t, err)
	require.Equal(t, "B7", name)
}

func TestSpan(t *testing.T) {
	s := Span{FromCol: 1, FromRow: 1, ToCol: 3, ToRow: 10}
	require.Equal(t, 30, s.Size())
	require.Equal(t, "A1:C10", s.String())
	clipped := s.Clip(4, 2)
	require.Equal(t, "A1:B4", clipped.String())
	require.True(t, s.Clip(0, 2).Empty())
	require.Equal(t, 0, s.Clip(0, 2).Size())
	require.True(t, Span{FromCol: 2, FromRow: 2, ToCol: 2, ToRow: 2}.Single())
}
