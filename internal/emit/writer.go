package emit

import (
	"bufio"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sca-rates/internal/errkind"
	"github.com/sells-group/sca-rates/internal/model"
)

// state tracks the strictly sequential progress of a Writer.
type state int

const (
	stateNew state = iota
	stateHeader
	stateBody
	stateDone
)

func (s state) String() string {
	switch s {
	case stateNew:
		return "not opened"
	case stateHeader:
		return "header written"
	case stateBody:
		return "body written"
	case stateDone:
		return "footer written"
	default:
		return "unknown"
	}
}

// Writer writes one script: header, then record blocks, then footer. Calls out of
// that order fail without writing anything.
type Writer struct {
	w     *bufio.Writer
	r     renderer
	state state
	count int
}

// NewWriter returns a Writer that renders for year with opts.
func NewWriter(w io.Writer, year int, opts Options) (*Writer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Writer{
		w: bufio.NewWriter(w),
		r: newRenderer(opts, year),
	}, nil
}

// WriteHeader writes the opening wrapper statement.
func (w *Writer) WriteHeader() error {
	if w.state != stateNew {
		return eris.Errorf("emit: header requested in state %q", w.state)
	}
	if _, err := w.w.WriteString(w.r.header()); err != nil {
		return errkind.Format(eris.Wrap(err, "emit: write header"))
	}
	w.state = stateHeader
	return nil
}

// WriteRecord writes the statement block for rec.
func (w *Writer) WriteRecord(rec model.RateRecord) error {
	if w.state != stateHeader && w.state != stateBody {
		return eris.Errorf("emit: record requested in state %q", w.state)
	}
	block, err := w.r.block(rec)
	if err != nil {
		return err
	}
	if _, err := w.w.WriteString(block); err != nil {
		return errkind.Format(eris.Wrapf(err, "emit: write record %q", rec.OccupationCode))
	}
	w.state = stateBody
	w.count++
	return nil
}

// WriteFooter writes the closing wrapper statement and flushes.
func (w *Writer) WriteFooter() error {
	if w.state != stateHeader && w.state != stateBody {
		return eris.Errorf("emit: footer requested in state %q", w.state)
	}
	if _, err := w.w.WriteString(w.r.footer()); err != nil {
		return errkind.Format(eris.Wrap(err, "emit: write footer"))
	}
	if err := w.w.Flush(); err != nil {
		return errkind.Format(eris.Wrap(err, "emit: flush"))
	}
	w.state = stateDone
	return nil
}

// Count returns the number of record blocks written.
func (w *Writer) Count() int {
	return w.count
}

// Render writes a complete script for records to out.
func Render(out io.Writer, records []model.RateRecord, year int, opts Options) (int, error) {
	w, err := NewWriter(out, year, opts)
	if err != nil {
		return 0, err
	}
	if err := w.WriteHeader(); err != nil {
		return 0, err
	}
	for _, rec := range records {
		if err := w.WriteRecord(rec); err != nil {
			return w.Count(), err
		}
	}
	if err := w.WriteFooter(); err != nil {
		return w.Count(), err
	}
	return w.Count(), nil
}
