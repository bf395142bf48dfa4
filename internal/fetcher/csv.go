// Package fetcher opens local tabular exports (CSV and XLSX) and decodes their rows
// into structs by header name.
package fetcher

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/sca-rates/internal/errkind"
)

// CSVOptions configures the CSV decoder.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // comment character (0 = none)
	LazyQuotes bool
	TrimSpace  bool
}

// NewCSVReader builds an encoding/csv reader for r with opts applied.
// Every record must have as many fields as the header.
func NewCSVReader(r io.Reader, opts CSVOptions) *csv.Reader {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	if opts.Comment != 0 {
		reader.Comment = opts.Comment
	}
	reader.LazyQuotes = opts.LazyQuotes
	return reader
}

// DecodeCSV reads a header row from r and decodes every following row into a T,
// calling fn once per row in file order. The first error stops decoding: columns
// of T missing from the header, a row that does not coerce, or an error from fn.
// Decoding failures are classified as errkind.KindParse.
func DecodeCSV[T any](ctx context.Context, r io.Reader, opts CSVOptions, fn func(row int, v T) error) error {
	var src csvutil.Reader = NewCSVReader(r, opts)
	if opts.TrimSpace {
		src = &trimReader{r: src}
	}
	return decode(ctx, src, "csv", fn)
}

// decode drives a csvutil.Decoder over src. Row numbers are 1-based and count the
// header as row 1.
func decode[T any](ctx context.Context, src csvutil.Reader, format string, fn func(row int, v T) error) error {
	dec, err := csvutil.NewDecoder(src)
	if errors.Is(err, io.EOF) {
		return errkind.Parse(eris.Errorf("%s: missing header row", format))
	}
	if err != nil {
		return errkind.Parse(eris.Wrapf(err, "%s: read header", format))
	}
	dec.DisallowMissingColumns = true

	row := 1
	for {
		if ctx.Err() != nil {
			return eris.Wrapf(ctx.Err(), "%s: context cancelled", format)
		}

		var v T
		err := dec.Decode(&v)
		if err == io.EOF {
			return nil
		}
		row++
		if err != nil {
			return errkind.Parse(eris.Wrapf(err, "%s: decode row %d", format, row))
		}

		if err := fn(row, v); err != nil {
			return err
		}
	}
}

// trimReader strips surrounding whitespace from every field read from r.
type trimReader struct {
	r csvutil.Reader
}

func (t *trimReader) Read() ([]string, error) {
	record, err := t.r.Read()
	if err != nil {
		return record, err
	}
	for i, field := range record {
		record[i] = strings.TrimSpace(field)
	}
	return record, nil
}
