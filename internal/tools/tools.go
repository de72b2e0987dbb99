package tools

import (
	"context"
	"math"

	"github.com/vinodismyname/sheettools/internal/workbooks"
	"github.com/vinodismyname/sheettools/pkg/mcperr"
)

// cancelEvery is how many cells are visited between context checks.
const cancelEvery = 4096

// Service implements the spreadsheet tools. It holds no per-request state.
type Service struct {
	decoder *workbooks.Decoder
}

// NewService returns a Service decoding files with d. A nil d uses
// excelize defaults with no workbook gate.
func NewService(d *workbooks.Decoder) *Service {
	if d == nil {
		d = &workbooks.Decoder{}
	}
	return &Service{decoder: d}
}

// SumRange adds every numeric cell in the range. Booleans count as 1 and 0;
// text and empty cells are skipped.
func (s *Service) SumRange(ctx context.Context, req SumRangeRequest) (ValueResult, error) {
	sum, _, err := s.aggregate(ctx, *req.File, *req.Range)
	if err != nil {
		return ValueResult{}, err
	}
	return ValueResult{Value: sum}, nil
}

// AvgRange returns sum/count over the numeric cells of the range, or 0 when
// the range holds no numbers.
func (s *Service) AvgRange(ctx context.Context, req AvgRangeRequest) (ValueResult, error) {
	sum, count, err := s.aggregate(ctx, *req.File, *req.Range)
	if err != nil {
		return ValueResult{}, err
	}
	if count == 0 {
		return ValueResult{Value: 0.0}, nil
	}
	return ValueResult{Value: sum / float64(count)}, nil
}

// GetCell returns the stored value of one cell without coercion.
func (s *Service) GetCell(ctx context.Context, req GetCellRequest) (ValueResult, error) {
	ref, err := workbooks.ParseReference(*req.Cell)
	if err != nil {
		return ValueResult{}, err
	}
	doc, err := s.decoder.Decode(ctx, *req.File)
	if err != nil {
		return ValueResult{}, err
	}
	defer doc.Close()

	v, err := doc.Cell(ref)
	if err != nil {
		return ValueResult{}, err
	}
	return ValueResult{Value: v.Interface()}, nil
}

// SetCell writes value into one cell (as a number when it parses as one)
// and returns the re-encoded workbook.
func (s *Service) SetCell(ctx context.Context, req SetCellRequest) (FileResult, error) {
	ref, err := workbooks.ParseReference(*req.Cell)
	if err != nil {
		return FileResult{}, err
	}
	doc, err := s.decoder.Decode(ctx, *req.File)
	if err != nil {
		return FileResult{}, err
	}
	defer doc.Close()

	sheet, cell, err := doc.CellName(ref)
	if err != nil {
		return FileResult{}, err
	}
	if err := doc.SetValue(sheet, cell, workbooks.ParseValue(*req.Value)); err != nil {
		return FileResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return FileResult{}, err
	}
	url, err := workbooks.Encode(doc, workbooks.MIMEXLSX)
	if err != nil {
		return FileResult{}, err
	}
	return FileResult{File: url}, nil
}

// ToCSV renders the active worksheet as CSV.
func (s *Service) ToCSV(ctx context.Context, req ToCSVRequest) (FileResult, error) {
	doc, err := s.decoder.Decode(ctx, *req.File)
	if err != nil {
		return FileResult{}, err
	}
	defer doc.Close()

	sheet, err := doc.ActiveSheet()
	if err != nil {
		return FileResult{}, err
	}
	b, err := doc.CSV(sheet)
	if err != nil {
		return FileResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return FileResult{}, err
	}
	return FileResult{File: workbooks.EncodeBytes(b, workbooks.MIMECSV)}, nil
}

func (s *Service) aggregate(ctx context.Context, file, rng string) (float64, int, error) {
	ref, err := workbooks.ParseReference(rng)
	if err != nil {
		return 0, 0, err
	}
	doc, err := s.decoder.Decode(ctx, file)
	if err != nil {
		return 0, 0, err
	}
	defer doc.Close()

	sheet, span, err := doc.Resolve(ref)
	if err != nil {
		return 0, 0, err
	}
	// Cells past the used extent are empty and cannot contribute.
	rows, cols, err := doc.Extent(sheet)
	if err != nil {
		return 0, 0, err
	}
	span = span.Clip(rows, cols)
	if span.Empty() {
		return 0, 0, nil
	}

	var (
		sum     float64
		count   int
		visited int
	)
	err = doc.Walk(sheet, span, func(_, _ int, v workbooks.Value) error {
		visited++
		if visited%cancelEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if n, ok := v.Numeric(); ok {
			sum += n
			count++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	if math.IsInf(sum, 0) || math.IsNaN(sum) {
		return 0, 0, mcperr.Newf(mcperr.ExecutionError, "sum of %s overflows a float64", ref)
	}
	return sum, count, nil
}
