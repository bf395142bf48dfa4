package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertSQL(t *testing.T) {
	got, err := InsertSQL("dbo.Jobs", []string{"JobCode", "HourlyWageRate"}, []string{"'A1'", "12.5"})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO \"dbo\".\"Jobs\" (\"JobCode\", \"HourlyWageRate\")\nVALUES ('A1', 12.5)", got)
}

func TestInsertSQL_Mismatch(t *testing.T) {
	_, err := InsertSQL("t", []string{"a", "b"}, []string{"1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 columns but 1 values")

	_, err = InsertSQL("t", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestUpsertSQL(t *testing.T) {
	got, err := UpsertSQL(UpsertConfig{
		Table:        "jobs",
		Columns:      []string{"code", "title", "rate"},
		ConflictKeys: []string{"code"},
		UpdateCols:   []string{"rate"},
	}, []string{"'A1'", "'Cook'", "12.5"})
	require.NoError(t, err)
	assert.Equal(t,
		"INSERT INTO \"jobs\" (\"code\", \"title\", \"rate\")\nVALUES ('A1', 'Cook', 12.5)\n"+
			"ON CONFLICT (\"code\") DO UPDATE SET \"rate\" = EXCLUDED.\"rate\"",
		got)
}

func TestUpsertSQL_DefaultUpdateCols(t *testing.T) {
	got, err := UpsertSQL(UpsertConfig{
		Table:        "jobs",
		Columns:      []string{"code", "title", "rate"},
		ConflictKeys: []string{"code"},
	}, []string{"'A1'", "'Cook'", "12.5"})
	require.NoError(t, err)
	assert.Contains(t, got, `DO UPDATE SET "title" = EXCLUDED."title", "rate" = EXCLUDED."rate"`)
}

func TestUpsertSQL_NoColumns(t *testing.T) {
	_, err := UpsertSQL(UpsertConfig{
		Table:        "fed_data.test",
		ConflictKeys: []string{"id"},
	}, []string{"1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestUpsertSQL_NoConflictKeys(t *testing.T) {
	_, err := UpsertSQL(UpsertConfig{
		Table:   "fed_data.test",
		Columns: []string{"id", "name"},
	}, []string{"1", "'a'"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestUpsertSQL_NothingToUpdate(t *testing.T) {
	_, err := UpsertSQL(UpsertConfig{
		Table:        "t",
		Columns:      []string{"id"},
		ConflictKeys: []string{"id"},
	}, []string{"1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns to update")
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", `"simple"`},
		{"dbo.Jobs", `"dbo"."Jobs"`},
		{`we"ird`, `"we""ird"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := SanitizeTable(tt.input)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	result := QuoteAndJoin([]string{"id", "name", "value"})
	assert.Equal(t, `"id", "name", "value"`, result)
	assert.Equal(t, `"Year"`, QuoteIdent("Year"))
}

func TestEscapeLiteral(t *testing.T) {
	assert.Equal(t, "Joe''s diner", EscapeLiteral("Joe's diner"))
	assert.Equal(t, "plain", EscapeLiteral("plain"))
	assert.Equal(t, "''''", EscapeLiteral("''"))
	assert.Equal(t, "", EscapeLiteral(""))
}
