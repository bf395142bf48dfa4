// Package db renders dialect-neutral INSERT and INSERT ... ON CONFLICT statement
// text with quoted identifiers. Postgres and SQLite both accept the output.
package db

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig defines the parameters for an upsert statement.
type UpsertConfig struct {
	Table        string   // target table (e.g., "dbo.Jobs")
	Columns      []string // all columns being inserted
	ConflictKeys []string // columns forming the unique constraint
	UpdateCols   []string // columns to update on conflict; nil = all non-conflict columns
}

// InsertSQL renders a single-row INSERT. values are SQL literals or expressions,
// already escaped, one per column.
func InsertSQL(table string, columns, values []string) (string, error) {
	if len(columns) == 0 {
		return "", eris.New("db: insert: no columns specified")
	}
	if len(columns) != len(values) {
		return "", eris.Errorf("db: insert: %d columns but %d values", len(columns), len(values))
	}
	return fmt.Sprintf("INSERT INTO %s (%s)\nVALUES (%s)",
		SanitizeTable(table),
		QuoteAndJoin(columns),
		strings.Join(values, ", "),
	), nil
}

// UpsertSQL renders INSERT ... ON CONFLICT (keys) DO UPDATE SET col = EXCLUDED.col
// for a single row. The conflict keys must carry a unique constraint in the target.
func UpsertSQL(cfg UpsertConfig, values []string) (string, error) {
	if len(cfg.Columns) == 0 {
		return "", eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return "", eris.New("db: upsert: no conflict keys specified")
	}

	updateCols := cfg.UpdateCols
	if updateCols == nil {
		conflictSet := make(map[string]bool, len(cfg.ConflictKeys))
		for _, k := range cfg.ConflictKeys {
			conflictSet[k] = true
		}
		for _, c := range cfg.Columns {
			if !conflictSet[c] {
				updateCols = append(updateCols, c)
			}
		}
	}
	if len(updateCols) == 0 {
		return "", eris.New("db: upsert: no columns to update")
	}

	insert, err := InsertSQL(cfg.Table, cfg.Columns, values)
	if err != nil {
		return "", eris.Wrap(err, "db: upsert")
	}

	setClauses := make([]string, 0, len(updateCols))
	for _, col := range updateCols {
		setClauses = append(setClauses, fmt.Sprintf("%s = EXCLUDED.%s", pgx.Identifier{col}.Sanitize(), pgx.Identifier{col}.Sanitize()))
	}

	return fmt.Sprintf("%s\nON CONFLICT (%s) DO UPDATE SET %s",
		insert,
		QuoteAndJoin(cfg.ConflictKeys),
		strings.Join(setClauses, ", "),
	), nil
}

// SanitizeTable handles schema-qualified table names like "dbo.Jobs".
func SanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// QuoteIdent quotes a single column name.
func QuoteIdent(col string) string {
	return pgx.Identifier{col}.Sanitize()
}

// QuoteAndJoin quotes each column name and joins with commas.
func QuoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
