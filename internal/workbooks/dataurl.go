package workbooks

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"

	"github.com/vinodismyname/sheettools/pkg/mcperr"
	"github.com/xuri/excelize/v2"
)

const (
	// MIMEXLSX is the media type of returned workbooks.
	MIMEXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	// MIMECSV is the media type of CSV exports.
	MIMECSV = "text/csv"
)

// WorkbookGate coordinates capacity for simultaneously decoded workbooks (backed by runtime.Controller).
type WorkbookGate interface {
	AcquireWorkbook(ctx context.Context) error
	ReleaseWorkbook()
}

// Decoder turns data URLs into Documents. The zero value decodes with
// excelize defaults and no capacity gate.
type Decoder struct {
	Gate    WorkbookGate
	Options excelize.Options
}

// Decode is a convenience wrapper around a zero-value Decoder.
func Decode(dataURL string) (*Document, error) {
	var d Decoder
	return d.Decode(context.Background(), dataURL)
}

// Decode parses a data URL of the form data:<mime>;base64,<payload>. Only
// the part after the first comma is significant. The caller must Close the
// returned Document.
func (d *Decoder) Decode(ctx context.Context, dataURL string) (*Document, error) {
	payload, err := Payload(dataURL)
	if err != nil {
		return nil, err
	}

	if d.Gate != nil {
		if err := d.Gate.AcquireWorkbook(ctx); err != nil {
			return nil, mcperr.Wrapf(mcperr.BusyResource, err, "open workbook limit reached")
		}
	}

	f, err := excelize.OpenReader(bytes.NewReader(payload), d.Options)
	if err != nil {
		if f != nil {
			_ = f.Close()
		}
		d.release()
		return nil, mcperr.Wrapf(mcperr.UnparsableDocument, err, "failed to parse Excel file")
	}
	doc := NewDocument(f)
	if d.Gate != nil {
		doc.release = d.Gate.ReleaseWorkbook
	}
	return doc, nil
}

func (d *Decoder) release() {
	if d.Gate != nil {
		d.Gate.ReleaseWorkbook()
	}
}

// Payload extracts and base64-decodes the bytes carried by a data URL.
func Payload(dataURL string) ([]byte, error) {
	_, encoded, ok := strings.Cut(dataURL, ",")
	if !ok {
		return nil, mcperr.New(mcperr.InvalidEncoding, "invalid base64 file format: missing ',' separator in data URL")
	}
	// Bytes outside the base64 alphabet (line breaks, stray punctuation) are
	// discarded rather than rejected.
	encoded = strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9',
			r == '+', r == '/', r == '=':
			return r
		}
		return -1
	}, encoded)

	enc := base64.StdEncoding
	if !strings.HasSuffix(encoded, "=") && len(encoded)%4 != 0 {
		enc = base64.RawStdEncoding
	}
	b, err := enc.DecodeString(encoded)
	if err != nil {
		return nil, mcperr.Wrapf(mcperr.InvalidEncoding, err, "invalid base64 file format")
	}
	return b, nil
}

// Encode serializes the workbook and wraps it in a data URL of the given MIME type.
func Encode(doc *Document, mime string) (string, error) {
	buf, err := doc.File().WriteToBuffer()
	if err != nil {
		return "", mcperr.Wrapf(mcperr.ExecutionError, err, "failed to serialize workbook")
	}
	return EncodeBytes(buf.Bytes(), mime), nil
}

// EncodeBytes wraps raw bytes in a base64 data URL.
func EncodeBytes(b []byte, mime string) string {
	var sb strings.Builder
	sb.Grow(len("data:;base64,") + len(mime) + base64.StdEncoding.EncodedLen(len(b)))
	sb.WriteString("data:")
	sb.WriteString(mime)
	sb.WriteString(";base64,")
	sb.WriteString(base64.StdEncoding.EncodeToString(b))
	return sb.String()
}
