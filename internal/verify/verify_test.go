package verify

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sca-rates/internal/emit"
	"github.com/sells-group/sca-rates/internal/errkind"
	"github.com/sells-group/sca-rates/internal/model"
)

func records() []model.RateRecord {
	return []model.RateRecord{
		{OccupationCode: "A1", Title: "Cook", Rate: 12.5, Description: "Joe''s diner"},
		{OccupationCode: "B2", Title: "Baker", Rate: 14},
		{OccupationCode: "C3", Title: "Janitor", Rate: 10.75},
	}
}

func script(t *testing.T, recs []model.RateRecord, opts emit.Options) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := emit.Render(&buf, recs, 2025, opts)
	require.NoError(t, err)
	return buf.String()
}

func TestRun_Insert(t *testing.T) {
	opts := SQLiteOptions(emit.Options{})
	c, err := Run(context.Background(), script(t, records(), opts), opts, 1)
	require.NoError(t, err)
	assert.Equal(t, Counts{Rows: 3, DistinctCodes: 3, Years: 1}, c)
}

func TestRun_InsertTwiceDuplicates(t *testing.T) {
	opts := SQLiteOptions(emit.Options{Wrapper: emit.WrapperNone})
	c, err := Run(context.Background(), script(t, records(), opts), opts, 2)
	require.NoError(t, err)
	assert.Equal(t, 6, c.Rows)
	assert.Equal(t, 3, c.DistinctCodes)
}

func TestRun_UpsertIsIdempotent(t *testing.T) {
	opts := SQLiteOptions(emit.Options{Shape: emit.ShapeUpsert})
	c, err := Run(context.Background(), script(t, records(), opts), opts, 3)
	require.NoError(t, err)
	assert.Equal(t, Counts{Rows: 3, DistinctCodes: 3, Years: 1}, c)
}

func TestHarness_UpsertUpdatesRate(t *testing.T) {
	ctx := context.Background()
	opts := SQLiteOptions(emit.Options{Shape: emit.ShapeUpsert, Table: "jobs"})

	h, err := Open(ctx, opts.Table, opts.Columns, true)
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, h.Apply(ctx, script(t, records(), opts)))

	updated := records()
	updated[1].Rate = 15.5
	require.NoError(t, h.Apply(ctx, script(t, updated, opts)))

	rate, err := h.rate(ctx, "B2")
	require.NoError(t, err)
	assert.Equal(t, 15.5, rate)

	c, err := h.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Rows)
}

func TestRun_UnescapedQuoteRejected(t *testing.T) {
	recs := []model.RateRecord{{OccupationCode: "B7", Title: "Driver's Helper", Rate: 15}}

	opts := SQLiteOptions(emit.Options{})
	_, err := Run(context.Background(), script(t, recs, opts), opts, 1)
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.KindFormat))

	opts.EscapeLiterals = true
	c, err := Run(context.Background(), script(t, recs, opts), opts, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Rows)
}

func TestRun_FailedTransactionLeavesNothing(t *testing.T) {
	ctx := context.Background()
	opts := SQLiteOptions(emit.Options{})

	h, err := Open(ctx, opts.Table, opts.Columns, false)
	require.NoError(t, err)
	defer h.Close()

	require.Error(t, h.Apply(ctx, "BEGIN TRANSACTION;\nINSERT INTO nowhere VALUES (1);\nCOMMIT;\n"))
	_, _ = h.conn.ExecContext(ctx, "ROLLBACK")

	c, err := h.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, c.Rows)
}

func TestSQLiteOptions(t *testing.T) {
	assert.Equal(t, emit.WrapperTransaction, SQLiteOptions(emit.Options{}).Wrapper)
	assert.Equal(t, emit.WrapperNone, SQLiteOptions(emit.Options{Wrapper: emit.WrapperNone}).Wrapper)
	assert.Equal(t, emit.DialectSQLite, SQLiteOptions(emit.Options{Dialect: emit.DialectMSSQL}).Dialect)
}
