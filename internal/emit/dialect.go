package emit

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sca-rates/internal/db"
	"github.com/sells-group/sca-rates/internal/errkind"
	"github.com/sells-group/sca-rates/internal/model"
)

// renderer produces the statement text for one dialect and fiscal year.
type renderer struct {
	opts Options
	year int
	log  *zap.Logger
}

func newRenderer(opts Options, year int) renderer {
	opts = opts.withDefaults()
	return renderer{
		opts: opts,
		year: year,
		log:  zap.L().With(zap.String("component", "emit"), zap.String("dialect", string(opts.Dialect))),
	}
}

func (r renderer) header() string {
	o := r.opts
	switch o.Wrapper {
	case WrapperGuard:
		if o.Dialect == DialectMSSQL {
			return fmt.Sprintf("IF NOT EXISTS (SELECT 1 FROM %s WHERE %s = %d)\nBEGIN\n\n",
				o.Table, o.Columns.Year, r.year)
		}
		return fmt.Sprintf("DO $$\nBEGIN\nIF NOT EXISTS (SELECT 1 FROM %s WHERE %s = %d) THEN\n\n",
			db.SanitizeTable(o.Table), db.QuoteIdent(o.Columns.Year), r.year)
	case WrapperTransaction:
		if o.Dialect == DialectPostgres {
			return "BEGIN;\n\n"
		}
		return "BEGIN TRANSACTION;\n\n"
	default:
		return ""
	}
}

func (r renderer) footer() string {
	o := r.opts
	switch o.Wrapper {
	case WrapperGuard:
		if o.Dialect == DialectMSSQL {
			return "END;\n"
		}
		return "END IF;\nEND\n$$;\n"
	case WrapperTransaction:
		return "COMMIT;\n"
	default:
		return ""
	}
}

// block renders the statements for one record, followed by a blank line.
func (r renderer) block(rec model.RateRecord) (string, error) {
	if math.IsNaN(rec.Rate) || math.IsInf(rec.Rate, 0) {
		return "", errkind.Format(eris.Errorf("emit: occupation code %q has non-finite rate %v", rec.OccupationCode, rec.Rate))
	}

	code, title := rec.OccupationCode, rec.Title
	if r.opts.EscapeLiterals {
		code, title = db.EscapeLiteral(code), db.EscapeLiteral(title)
	} else if strings.Contains(code, "'") || strings.Contains(title, "'") {
		r.log.Warn("unescaped single quote embedded in SQL literal",
			zap.String("occupation_code", rec.OccupationCode),
			zap.String("title", rec.Title),
		)
	}

	codeLit := quote(code)
	rate := strconv.FormatFloat(rec.Rate, 'f', -1, 64)
	values := []string{
		r.idExpr(),
		codeLit,
		quote(title),
		quote(rec.Description),
		rate,
		r.trueLiteral(),
		r.nowExpr(),
		r.yearLiteral(),
	}

	o := r.opts
	if o.Dialect == DialectMSSQL {
		insert := fmt.Sprintf("INSERT INTO %s (%s)\nVALUES (%s)",
			o.Table, strings.Join(o.Columns.List(), ", "), strings.Join(values, ", "))
		if o.Shape == ShapeInsert {
			return insert + "\n\n", nil
		}
		return fmt.Sprintf("IF EXISTS (SELECT 1 FROM %[1]s WHERE %[2]s = %[3]s)\n"+
			"    UPDATE %[1]s SET %[4]s = %[5]s WHERE %[2]s = %[3]s\n"+
			"ELSE\n"+
			"    %[6]s\n\n",
			o.Table, o.Columns.Code, codeLit, o.Columns.Rate, rate,
			strings.ReplaceAll(insert, "\n", "\n    ")), nil
	}

	var stmt string
	var err error
	if o.Shape == ShapeInsert {
		stmt, err = db.InsertSQL(o.Table, o.Columns.List(), values)
	} else {
		stmt, err = db.UpsertSQL(db.UpsertConfig{
			Table:        o.Table,
			Columns:      o.Columns.List(),
			ConflictKeys: []string{o.Columns.Code},
			UpdateCols:   []string{o.Columns.Rate},
		}, values)
	}
	if err != nil {
		return "", errkind.Format(eris.Wrapf(err, "emit: render %q", rec.OccupationCode))
	}
	return stmt + ";\n\n", nil
}

func (r renderer) idExpr() string {
	if r.opts.Dialect == DialectMSSQL {
		return "NEWID()"
	}
	return quote(r.opts.NewID())
}

func (r renderer) trueLiteral() string {
	if r.opts.Dialect == DialectPostgres {
		return "TRUE"
	}
	return "1"
}

func (r renderer) nowExpr() string {
	switch r.opts.Dialect {
	case DialectMSSQL:
		return "GETUTCDATE()"
	case DialectPostgres:
		return "now()"
	default:
		return "CURRENT_TIMESTAMP"
	}
}

func (r renderer) yearLiteral() string {
	if r.opts.Dialect == DialectMSSQL {
		return quote(strconv.Itoa(r.year))
	}
	return strconv.Itoa(r.year)
}

func quote(s string) string {
	return "'" + s + "'"
}
