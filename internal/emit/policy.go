// Package emit renders wage rate records as a versioned SQL migration script.
package emit

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Dialect is the SQL flavour of the generated script.
type Dialect string

const (
	DialectMSSQL    Dialect = "mssql"
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Shape is the statement block written for each record.
type Shape string

const (
	// ShapeInsert writes one INSERT per record with a fresh row identifier.
	ShapeInsert Shape = "insert"
	// ShapeUpsert inserts a record whose occupation code is absent and updates
	// the rate of one that is present.
	ShapeUpsert Shape = "upsert"
)

// Wrapper is the statement pair around the record blocks.
type Wrapper string

const (
	// WrapperGuard skips the whole script when rows for the fiscal year exist.
	WrapperGuard Wrapper = "guard"
	// WrapperTransaction runs the script in one transaction.
	WrapperTransaction Wrapper = "transaction"
	WrapperNone        Wrapper = "none"
)

// FiscalYearPolicy derives the target year from the clock.
type FiscalYearPolicy string

const (
	FiscalYearCurrent FiscalYearPolicy = "current"
	FiscalYearNext    FiscalYearPolicy = "next"
)

// DefaultNameFormat matches the migration naming used by the Jobs schema. The %d
// verb receives the fiscal year.
const DefaultNameFormat = "V1.1.114__Insert_%d_SCA_Rates.sql"

// Columns names the target table's columns.
type Columns struct {
	ID          string
	Code        string
	Title       string
	Description string
	Rate        string
	IsSCA       string
	Created     string
	Year        string
}

// DefaultColumns is the dbo.Jobs layout.
var DefaultColumns = Columns{
	ID:          "JobGuid",
	Code:        "JobCode",
	Title:       "JobTitle",
	Description: "Description",
	Rate:        "HourlyWageRate",
	IsSCA:       "IsSCAJob",
	Created:     "CreatedDate",
	Year:        "Year",
}

// List returns the insert column order.
func (c Columns) List() []string {
	return []string{c.ID, c.Code, c.Title, c.Description, c.Rate, c.IsSCA, c.Created, c.Year}
}

// Options selects the emission policy for one run.
type Options struct {
	Dialect Dialect
	Shape   Shape
	Wrapper Wrapper
	Table   string  // default "dbo.Jobs"
	Columns Columns // default DefaultColumns
	// EscapeLiterals doubles single quotes in titles and occupation codes. Off by
	// default, which embeds them verbatim and logs a warning for each one holding a
	// quote. Descriptions are escaped when read and are never touched here.
	EscapeLiterals bool
	// NewID generates client-side row identifiers for dialects without a server
	// function. Default uuid.NewString.
	NewID func() string
}

func (o Options) withDefaults() Options {
	if o.Dialect == "" {
		o.Dialect = DialectMSSQL
	}
	if o.Shape == "" {
		o.Shape = ShapeInsert
	}
	if o.Wrapper == "" {
		o.Wrapper = WrapperGuard
	}
	if o.Table == "" {
		o.Table = "dbo.Jobs"
	}
	if o.Columns == (Columns{}) {
		o.Columns = DefaultColumns
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	return o
}

// Validate rejects unknown enumerations and combinations a dialect cannot express.
func (o Options) Validate() error {
	o = o.withDefaults()
	switch o.Dialect {
	case DialectMSSQL, DialectPostgres, DialectSQLite:
	default:
		return eris.Errorf("emit: unknown dialect %q", o.Dialect)
	}
	switch o.Shape {
	case ShapeInsert, ShapeUpsert:
	default:
		return eris.Errorf("emit: unknown shape %q", o.Shape)
	}
	switch o.Wrapper {
	case WrapperGuard, WrapperTransaction, WrapperNone:
	default:
		return eris.Errorf("emit: unknown wrapper %q", o.Wrapper)
	}
	if o.Dialect == DialectSQLite && o.Wrapper == WrapperGuard {
		return eris.New("emit: sqlite has no procedural block for the guard wrapper, use transaction or none")
	}
	return nil
}

// FiscalYear returns override when it is non-zero, otherwise the year policy
// derives from now.
func FiscalYear(policy FiscalYearPolicy, override int, now time.Time) (int, error) {
	if override != 0 {
		return override, nil
	}
	switch policy {
	case FiscalYearCurrent, "":
		return now.Year(), nil
	case FiscalYearNext:
		return now.Year() + 1, nil
	default:
		return 0, eris.Errorf("emit: unknown fiscal year policy %q", policy)
	}
}

// FileName formats the migration file name for year. format must contain exactly
// one %d verb and no other verbs.
func FileName(format string, year int) (string, error) {
	if format == "" {
		format = DefaultNameFormat
	}
	if err := ValidateNameFormat(format); err != nil {
		return "", err
	}
	return fmt.Sprintf(format, year), nil
}

// ValidateNameFormat checks that format has exactly one %d verb and no other verbs.
func ValidateNameFormat(format string) error {
	stripped := strings.ReplaceAll(format, "%%", "")
	if strings.Count(stripped, "%") != 1 || strings.Count(stripped, "%d") != 1 {
		return eris.Errorf("emit: name format %q must contain exactly one %%d", format)
	}
	if strings.ContainsAny(format, `/\`) {
		return eris.Errorf("emit: name format %q must be a file name, not a path", format)
	}
	return nil
}
