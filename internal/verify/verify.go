// Package verify applies generated scripts to an in-memory SQLite database and
// reports what they left behind.
package verify

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/sca-rates/internal/db"
	"github.com/sells-group/sca-rates/internal/emit"
	"github.com/sells-group/sca-rates/internal/errkind"
)

// Counts summarizes the target table after one or more scripts ran.
type Counts struct {
	Rows          int
	DistinctCodes int
	Years         int
}

// Harness owns a single in-memory database connection holding the target table.
type Harness struct {
	db    *sql.DB
	conn  *sql.Conn
	table string
	cols  emit.Columns
}

// Open creates an in-memory database with an empty target table. A schema
// qualified table such as dbo.Jobs gets its schema attached as a second in-memory
// database. uniqueCode adds the unique constraint the upsert shape relies on.
func Open(ctx context.Context, table string, cols emit.Columns, uniqueCode bool) (*Harness, error) {
	if table == "" {
		table = "dbo.Jobs"
	}
	if cols == (emit.Columns{}) {
		cols = emit.DefaultColumns
	}

	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, eris.Wrap(err, "verify: open")
	}
	// Every :memory: connection is its own database.
	sqlDB.SetMaxOpenConns(1)

	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		sqlDB.Close()
		return nil, eris.Wrap(err, "verify: conn")
	}
	h := &Harness{db: sqlDB, conn: conn, table: table, cols: cols}

	if schema, _, ok := strings.Cut(table, "."); ok {
		stmt := fmt.Sprintf("ATTACH DATABASE ':memory:' AS %s", db.QuoteIdent(schema))
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			h.Close()
			return nil, eris.Wrapf(err, "verify: attach schema %s", schema)
		}
	}

	if _, err := conn.ExecContext(ctx, h.schema(uniqueCode)); err != nil {
		h.Close()
		return nil, eris.Wrapf(err, "verify: create %s", table)
	}
	return h, nil
}

func (h *Harness) schema(uniqueCode bool) string {
	code := "TEXT NOT NULL"
	if uniqueCode {
		code += " UNIQUE"
	}
	c := h.cols
	return fmt.Sprintf(`CREATE TABLE %s (
	%s TEXT NOT NULL,
	%s %s,
	%s TEXT NOT NULL,
	%s TEXT NOT NULL,
	%s REAL NOT NULL,
	%s INTEGER NOT NULL,
	%s TEXT NOT NULL,
	%s INTEGER NOT NULL
)`,
		db.SanitizeTable(h.table),
		db.QuoteIdent(c.ID),
		db.QuoteIdent(c.Code), code,
		db.QuoteIdent(c.Title),
		db.QuoteIdent(c.Description),
		db.QuoteIdent(c.Rate),
		db.QuoteIdent(c.IsSCA),
		db.QuoteIdent(c.Created),
		db.QuoteIdent(c.Year),
	)
}

// Apply executes script. A script SQLite rejects is a Format failure.
func (h *Harness) Apply(ctx context.Context, script string) error {
	if _, err := h.conn.ExecContext(ctx, script); err != nil {
		return errkind.Format(eris.Wrap(err, "verify: apply script"))
	}
	return nil
}

// Counts reports the rows in the target table.
func (h *Harness) Counts(ctx context.Context) (Counts, error) {
	q := fmt.Sprintf("SELECT COUNT(*), COUNT(DISTINCT %s), COUNT(DISTINCT %s) FROM %s",
		db.QuoteIdent(h.cols.Code), db.QuoteIdent(h.cols.Year), db.SanitizeTable(h.table))

	var c Counts
	if err := h.conn.QueryRowContext(ctx, q).Scan(&c.Rows, &c.DistinctCodes, &c.Years); err != nil {
		return Counts{}, eris.Wrap(err, "verify: count rows")
	}
	return c, nil
}

// rate returns the stored rate for code.
func (h *Harness) rate(ctx context.Context, code string) (float64, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		db.QuoteIdent(h.cols.Rate), db.SanitizeTable(h.table), db.QuoteIdent(h.cols.Code))

	var rate float64
	if err := h.conn.QueryRowContext(ctx, q, code).Scan(&rate); err != nil {
		return 0, eris.Wrapf(err, "verify: rate for %q", code)
	}
	return rate, nil
}

// Close releases the connection and the database.
func (h *Harness) Close() error {
	if h.conn != nil {
		h.conn.Close()
	}
	return h.db.Close()
}

// Run applies script the given number of times to a fresh database and returns
// the resulting counts.
func Run(ctx context.Context, script string, opts emit.Options, times int) (Counts, error) {
	log := zap.L().With(zap.String("component", "verify"))
	if times < 1 {
		times = 1
	}

	h, err := Open(ctx, opts.Table, opts.Columns, opts.Shape == emit.ShapeUpsert)
	if err != nil {
		return Counts{}, err
	}
	defer h.Close()

	for i := 0; i < times; i++ {
		if err := h.Apply(ctx, script); err != nil {
			return Counts{}, eris.Wrapf(err, "verify: pass %d", i+1)
		}
		log.Debug("script applied", zap.Int("pass", i+1))
	}

	c, err := h.Counts(ctx)
	if err != nil {
		return Counts{}, err
	}
	log.Info("script verified",
		zap.Int("passes", times),
		zap.Int("rows", c.Rows),
		zap.Int("distinct_codes", c.DistinctCodes),
	)
	return c, nil
}

// SQLiteOptions adapts opts to a script SQLite can run. The guard wrapper has no
// SQLite form and becomes a transaction.
func SQLiteOptions(opts emit.Options) emit.Options {
	opts.Dialect = emit.DialectSQLite
	if opts.Wrapper == "" || opts.Wrapper == emit.WrapperGuard {
		opts.Wrapper = emit.WrapperTransaction
	}
	return opts
}
