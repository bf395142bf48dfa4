package emit

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sca-rates/internal/errkind"
	"github.com/sells-group/sca-rates/internal/model"
)

// FileOptions controls where the script is written.
type FileOptions struct {
	Dir        string // default "."
	NameFormat string // default DefaultNameFormat
	// Overwrite truncates an existing file. When false the file must not exist.
	Overwrite bool
}

// Result describes a written script.
type Result struct {
	Path    string
	Year    int
	Records int
}

// OutputPath returns the script path for year.
func OutputPath(year int, fopts FileOptions) (string, error) {
	name, err := FileName(fopts.NameFormat, year)
	if err != nil {
		return "", err
	}
	dir := fopts.Dir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, name), nil
}

// WriteFile writes the script for records to a new file named by year. The file is
// closed on every return path. A failure after the file is created leaves the
// partial script on disk.
func WriteFile(ctx context.Context, records []model.RateRecord, year int, opts Options, fopts FileOptions) (res Result, err error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}
	path, err := OutputPath(year, fopts)
	if err != nil {
		return Result{}, err
	}
	res = Result{Path: path, Year: year}
	log := zap.L().With(zap.String("component", "emit"), zap.String("path", path))

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if fopts.Overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return res, errkind.IO(eris.Wrapf(err, "emit: create %s", path))
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errkind.Format(eris.Wrapf(cerr, "emit: close %s", path))
		}
		if err != nil {
			log.Warn("partial script left on disk", zap.Int("records_written", res.Records), zap.Error(err))
		}
	}()

	w, err := NewWriter(f, year, opts)
	if err != nil {
		return res, err
	}
	if err := w.WriteHeader(); err != nil {
		return res, err
	}
	for _, rec := range records {
		if ctx.Err() != nil {
			return res, eris.Wrap(ctx.Err(), "emit: context cancelled")
		}
		if err := w.WriteRecord(rec); err != nil {
			res.Records = w.Count()
			return res, err
		}
	}
	res.Records = w.Count()
	if err := w.WriteFooter(); err != nil {
		return res, err
	}

	log.Info("SQL file created", zap.Int("records", res.Records), zap.Int("fiscal_year", year))
	return res, nil
}
