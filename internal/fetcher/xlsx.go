package fetcher

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/sca-rates/internal/errkind"
)

// XLSXOptions configures the XLSX parser.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
	SkipRows   int    // rows to skip before the header
	TrimSpace  bool
}

// ReadXLSX reads a worksheet and returns all non-blank rows as string slices.
func ReadXLSX(path string, opts XLSXOptions) ([][]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errkind.IO(eris.Wrapf(err, "xlsx: open %s", path))
	}

	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, errkind.Parse(eris.Wrapf(err, "xlsx: open %s", path))
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, errkind.Parse(err)
	}

	var rows [][]string
	for i, row := range sheet.Rows {
		if i < opts.SkipRows || row == nil {
			continue
		}

		cells := rowToStrings(row, opts.TrimSpace)
		if blank(cells) {
			continue
		}
		rows = append(rows, cells)
	}

	return rows, nil
}

// DecodeXLSX decodes the worksheet the same way DecodeCSV decodes a file: the
// first row is the header and each following row becomes a T.
func DecodeXLSX[T any](ctx context.Context, path string, opts XLSXOptions, fn func(row int, v T) error) error {
	rows, err := ReadXLSX(path, opts)
	if err != nil {
		return err
	}
	return decode(ctx, &sliceReader{rows: rows}, "xlsx", fn)
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row, trim bool) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		v := cell.String()
		if trim {
			v = strings.TrimSpace(v)
		}
		cells[j] = v
	}
	return cells
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// sliceReader feeds pre-read rows to a csvutil.Decoder. Short rows are padded to
// the header width since XLSX drops trailing empty cells.
type sliceReader struct {
	rows  [][]string
	pos   int
	width int
}

func (s *sliceReader) Read() ([]string, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++

	if s.width == 0 {
		s.width = len(row)
		return row, nil
	}
	if len(row) < s.width {
		padded := make([]string, s.width)
		copy(padded, row)
		row = padded
	}
	return row, nil
}
