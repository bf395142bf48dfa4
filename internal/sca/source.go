// Package sca reads the annual Service Contract Act wage rate exports and joins
// prior-year descriptions onto the current-year records.
package sca

import (
	"context"
	"math"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sca-rates/internal/errkind"
	"github.com/sells-group/sca-rates/internal/fetcher"
	"github.com/sells-group/sca-rates/internal/model"
)

// expectedRows is the rough size of one year's rate table.
const expectedRows = 500

// SourceOptions configures how the current-year rate file is read.
type SourceOptions struct {
	Path      string
	Delimiter rune   // default '|'
	Encoding  string // WHATWG label, default utf-8
	TrimSpace bool
	// LazyQuotes tolerates bare quotes inside unquoted fields.
	LazyQuotes bool
	Comment    rune // lines starting with it are skipped (0 = none)

	Sheet      string // XLSX only; overrides SheetIndex
	SheetIndex int    // XLSX only; default first sheet
	SkipRows   int    // XLSX only; rows above the header
}

// ReadSource loads the current-year rate file into records in file order. Columns
// occupation_code, title and rate are required; description starts empty. Codes are
// not checked for uniqueness here, see Dedupe. NaN and infinite rates are rejected
// as Parse failures.
func ReadSource(ctx context.Context, opts SourceOptions) ([]model.RateRecord, error) {
	log := zap.L().With(zap.String("component", "sca.source"), zap.String("path", opts.Path))

	records := make([]model.RateRecord, 0, expectedRows)
	collect := func(row int, r model.RateRecord) error {
		if math.IsNaN(r.Rate) || math.IsInf(r.Rate, 0) {
			return errkind.Parse(eris.Errorf("sca: row %d: occupation code %q has non-finite rate %v", row, r.OccupationCode, r.Rate))
		}
		r.Description = ""
		records = append(records, r)
		return nil
	}

	var err error
	if isXLSX(opts.Path) {
		err = fetcher.DecodeXLSX(ctx, opts.Path, fetcher.XLSXOptions{
			SheetName:  opts.Sheet,
			SheetIndex: opts.SheetIndex,
			SkipRows:   opts.SkipRows,
			TrimSpace:  opts.TrimSpace,
		}, collect)
	} else {
		err = decodeDelimited(ctx, opts.Path, opts.Encoding, fetcher.CSVOptions{
			Delimiter:  orDefault(opts.Delimiter, '|'),
			Comment:    opts.Comment,
			LazyQuotes: opts.LazyQuotes,
			TrimSpace:  opts.TrimSpace,
		}, collect)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sca: read source %s", opts.Path)
	}

	log.Debug("source loaded", zap.Int("records", len(records)))
	return records, nil
}

// decodeDelimited opens path, decodes every row with fn and closes the file on
// every return path.
func decodeDelimited[T any](ctx context.Context, path, encoding string, opts fetcher.CSVOptions, fn func(int, T) error) (err error) {
	f, err := fetcher.OpenText(path, encoding)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errkind.IO(eris.Wrapf(cerr, "sca: close %s", path))
		}
	}()

	return fetcher.DecodeCSV(ctx, f, opts, fn)
}

func isXLSX(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

func orDefault(r, def rune) rune {
	if r == 0 {
		return def
	}
	return r
}
