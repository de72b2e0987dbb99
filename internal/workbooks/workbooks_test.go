package workbooks

import (
	"context"
	"encoding/base64"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vinodismyname/sheettools/pkg/mcperr"
	"github.com/xuri/excelize/v2"
)

// fakeGate implements WorkbookGate for tests with counters.
type fakeGate struct {
	acquireErr error
	acquires   atomic.Int64
	releases   atomic.Int64
}

func (g *fakeGate) AcquireWorkbook(ctx context.Context) error {
	g.acquires.Add(1)
	return g.acquireErr
}
func (g *fakeGate) ReleaseWorkbook() { g.releases.Add(1) }

// sampleDataURL builds Sheet1 with A1=2, A2=4, A3="x" plus a second sheet.
func sampleDataURL(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", 2))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", 4))
	require.NoError(t, f.SetCellValue("Sheet1", "A3", "x"))
	_, err := f.NewSheet("Data")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Data", "A1", &[]any{"name", "qty", "ok"}))
	require.NoError(t, f.SetSheetRow("Data", "A2", &[]any{"apple", 1.5, true}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return EncodeBytes(buf.Bytes(), MIMEXLSX)
}

func mustDecode(t *testing.T, dataURL string) *Document {
	t.Helper()
	doc, err := Decode(dataURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = doc.Close() })
	return doc
}

func TestDecode_MissingComma(t *testing.T) {
	_, err := Decode("data:application/octet-stream;base64")
	require.True(t, mcperr.Is(err, mcperr.InvalidEncoding), "got %v", err)
}

func TestDecode_BadBase64(t *testing.T) {
	_, err := Decode("data:x;base64,@@@not-base64@@@")
	require.True(t, mcperr.Is(err, mcperr.InvalidEncoding), "got %v", err)
}

func TestPayload_DiscardsNonAlphabetBytes(t *testing.T) {
	b, err := Payload("data:x;base64,aGVs#bG8s\nIHdv*cmxk")
	require.NoError(t, err)
	require.Equal(t, "hello, world", string(b))

	_, err = Payload("data:x;base64,a")
	require.True(t, mcperr.Is(err, mcperr.InvalidEncoding), "got %v", err)
}

func TestDecode_NotAWorkbook(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("hello, world"))
	_, err := Decode("data:text/plain;base64," + payload)
	require.True(t, mcperr.Is(err, mcperr.UnparsableDocument), "got %v", err)

	_, err = Decode("data:;base64,")
	require.True(t, mcperr.Is(err, mcperr.UnparsableDocument), "got %v", err)
}

func TestDecode_IgnoresHeaderAndWhitespace(t *testing.T) {
	url := sampleDataURL(t)
	_, payload, _ := cutComma(url)
	wrapped := "whatever-header," + payload[:10] + "\n" + payload[10:]
	doc := mustDecode(t, wrapped)
	require.Equal(t, []string{"Sheet1", "Data"}, doc.SheetNames())
}

func TestDecode_AcceptsUnpaddedBase64(t *testing.T) {
	url := sampleDataURL(t)
	_, payload, _ := cutComma(url)
	raw, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	doc := mustDecode(t, "data:x;base64,"+base64.RawStdEncoding.EncodeToString(raw))
	require.Len(t, doc.SheetNames(), 2)
}

func TestDecoder_GateReleasedOnCloseAndFailure(t *testing.T) {
	gate := &fakeGate{}
	dec := &Decoder{Gate: gate}

	doc, err := dec.Decode(context.Background(), sampleDataURL(t))
	require.NoError(t, err)
	require.Equal(t, int64(1), gate.acquires.Load())
	require.Equal(t, int64(0), gate.releases.Load())
	require.NoError(t, doc.Close())
	require.Equal(t, int64(1), gate.releases.Load())
	// Second close is a no-op for the gate.
	_ = doc.Close()
	require.Equal(t, int64(1), gate.releases.Load())

	_, err = dec.Decode(context.Background(), "data:;base64,"+base64.StdEncoding.EncodeToString([]byte("junk")))
	require.Error(t, err)
	require.Equal(t, int64(2), gate.acquires.Load())
	require.Equal(t, int64(2), gate.releases.Load())
}

func TestDecoder_GateBusy(t *testing.T) {
	gate := &fakeGate{acquireErr: context.DeadlineExceeded}
	dec := &Decoder{Gate: gate}

	_, err := dec.Decode(context.Background(), sampleDataURL(t))
	require.True(t, mcperr.Is(err, mcperr.BusyResource), "got %v", err)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	require.Equal(t, int64(0), gate.releases.Load())
}

func TestDecoder_BadEncodingSkipsGate(t *testing.T) {
	gate := &fakeGate{}
	dec := &Decoder{Gate: gate}
	_, err := dec.Decode(context.Background(), "no comma here")
	require.Error(t, err)
	require.Equal(t, int64(0), gate.acquires.Load())
}

func TestEncodeDecode_RoundTripPreservesValues(t *testing.T) {
	doc := mustDecode(t, sampleDataURL(t))

	out, err := Encode(doc, MIMEXLSX)
	require.NoError(t, err)
	require.Contains(t, out, "data:"+MIMEXLSX+";base64,")

	again := mustDecode(t, out)
	require.Equal(t, doc.SheetNames(), again.SheetNames())
	for _, ref := range []string{"Sheet1!A1:A3", "Data!A1:C2"} {
		r, err := ParseReference(ref)
		require.NoError(t, err)
		want, err := doc.Cells(r)
		require.NoError(t, err)
		got, err := again.Cells(r)
		require.NoError(t, err)
		require.Equal(t, want, got, ref)
	}
}

func TestDocument_ActiveSheet(t *testing.T) {
	doc := mustDecode(t, sampleDataURL(t))
	name, err := doc.ActiveSheet()
	require.NoError(t, err)
	require.Equal(t, "Sheet1", name)

	doc.File().SetActiveSheet(1)
	name, err = doc.ActiveSheet()
	require.NoError(t, err)
	require.Equal(t, "Data", name)
}

func TestDocument_SheetIsCaseSensitive(t *testing.T) {
	doc := mustDecode(t, sampleDataURL(t))
	_, err := doc.Sheet("sheet1")
	require.True(t, mcperr.Is(err, mcperr.UnknownSheet), "got %v", err)
	name, err := doc.Sheet("Sheet1")
	require.NoError(t, err)
	require.Equal(t, "Sheet1", name)
}

func TestDocument_ValueKinds(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", 42))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "hello"))
	require.NoError(t, f.SetCellValue("Sheet1", "A3", true))
	require.NoError(t, f.SetCellFormula("Sheet1", "A4", "SUM(A1:A1)"))
	require.NoError(t, f.SetCellValue("Sheet1", "A6", 0.25))
	doc := NewDocument(f)
	defer doc.Close()

	cases := []struct {
		cell string
		want Value
	}{
		{"A1", NumberValue(42)},
		{"A2", TextValue("hello")},
		{"A3", BoolValue(true)},
		{"A4", TextValue("=SUM(A1:A1)")},
		{"A5", EmptyValue()},
		{"A6", NumberValue(0.25)},
		{"Z99", EmptyValue()},
	}
	for _, tc := range cases {
		got, err := doc.Value("Sheet1", tc.cell)
		require.NoError(t, err, tc.cell)
		require.Equal(t, tc.want.Kind, got.Kind, tc.cell)
		require.Equal(t, tc.want.Interface(), got.Interface(), tc.cell)
	}
}

func TestDocument_SetValue(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellFormula("Sheet1", "B2", "1+1"))
	doc := NewDocument(f)
	defer doc.Close()

	require.NoError(t, doc.SetValue("Sheet1", "B2", ParseValue("3.5")))
	v, err := doc.Value("Sheet1", "B2")
	require.NoError(t, err)
	require.Equal(t, KindNumber, v.Kind)
	require.Equal(t, 3.5, v.Number)

	require.NoError(t, doc.SetValue("Sheet1", "B3", ParseValue("3.5 apples")))
	v, err = doc.Value("Sheet1", "B3")
	require.NoError(t, err)
	require.Equal(t, TextValue("3.5 apples"), v)

	require.NoError(t, doc.SetValue("Sheet1", "B2", EmptyValue()))
	v, err = doc.Value("Sheet1", "B2")
	require.NoError(t, err)
	require.Equal(t, KindEmpty, v.Kind)
}

func TestDocument_Extent(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", 1))
	require.NoError(t, f.SetCellValue("Sheet1", "C3", "z"))
	doc := NewDocument(f)
	defer doc.Close()

	rows, cols, err := doc.Extent("Sheet1")
	require.NoError(t, err)
	require.Equal(t, 3, rows)
	require.Equal(t, 3, cols)
}

func cutComma(s string) (string, string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}
