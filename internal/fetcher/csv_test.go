package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sca-rates/internal/errkind"
)

type testRow struct {
	Code string  `csv:"code"`
	Name string  `csv:"name"`
	Rate float64 `csv:"rate"`
}

func collect[T any](t *testing.T, input string, opts CSVOptions) ([]T, []int, error) {
	t.Helper()
	var rows []T
	var lines []int
	err := DecodeCSV(context.Background(), strings.NewReader(input), opts, func(row int, v T) error {
		rows = append(rows, v)
		lines = append(lines, row)
		return nil
	})
	return rows, lines, err
}

func TestDecodeCSV_Basic(t *testing.T) {
	input := "code,name,rate\nA1,Cook,12.50\nB2,Baker,14\n"
	rows, lines, err := collect[testRow](t, input, CSVOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, testRow{Code: "A1", Name: "Cook", Rate: 12.5}, rows[0])
	assert.Equal(t, testRow{Code: "B2", Name: "Baker", Rate: 14}, rows[1])
	assert.Equal(t, []int{2, 3}, lines)
}

func TestDecodeCSV_PipeDelimited(t *testing.T) {
	input := "code|name|rate\nA1|Cook, Short Order|12.50\n"
	rows, _, err := collect[testRow](t, input, CSVOptions{Delimiter: '|'})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Cook, Short Order", rows[0].Name)
}

func TestDecodeCSV_ColumnOrderAndExtras(t *testing.T) {
	input := "rate,extra,name,code\n9.75,x,Janitor,C3\n"
	rows, _, err := collect[testRow](t, input, CSVOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, testRow{Code: "C3", Name: "Janitor", Rate: 9.75}, rows[0])
}

func TestDecodeCSV_HeaderOnly(t *testing.T) {
	rows, _, err := collect[testRow](t, "code,name,rate\n", CSVOptions{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDecodeCSV_Empty(t *testing.T) {
	_, _, err := collect[testRow](t, "", CSVOptions{})
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.KindParse))
	assert.Contains(t, err.Error(), "missing header row")
}

func TestDecodeCSV_NonNumeric(t *testing.T) {
	input := "code,name,rate\nA1,Cook,12.50\nB2,Baker,twelve\n"
	rows, _, err := collect[testRow](t, input, CSVOptions{})
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.KindParse))
	assert.Contains(t, err.Error(), "row 3")
	assert.Len(t, rows, 1, "rows before the failure were delivered")
}

func TestDecodeCSV_MissingColumn(t *testing.T) {
	input := "code,name\nA1,Cook\n"
	_, _, err := collect[testRow](t, input, CSVOptions{})
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.KindParse))
	assert.Contains(t, err.Error(), "rate")
}

func TestDecodeCSV_FieldCount(t *testing.T) {
	input := "code,name,rate\nA1,Cook\n"
	_, _, err := collect[testRow](t, input, CSVOptions{})
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.KindParse))
}

func TestDecodeCSV_LazyQuotes(t *testing.T) {
	input := "code,name,rate\nA1,Joe \"Big\" Cook,1\n"
	_, _, err := collect[testRow](t, input, CSVOptions{})
	require.Error(t, err)

	rows, _, err := collect[testRow](t, input, CSVOptions{LazyQuotes: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, `Joe "Big" Cook`, rows[0].Name)
}

func TestDecodeCSV_TrimSpace(t *testing.T) {
	input := " code , name , rate \n A1 , Cook , 12.5 \n"
	rows, _, err := collect[testRow](t, input, CSVOptions{TrimSpace: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, testRow{Code: "A1", Name: "Cook", Rate: 12.5}, rows[0])
}

func TestDecodeCSV_Comment(t *testing.T) {
	input := "# generated\ncode,name,rate\nA1,Cook,1\n# trailer\n"
	rows, _, err := collect[testRow](t, input, CSVOptions{Comment: '#'})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestDecodeCSV_CallbackErrorStops(t *testing.T) {
	input := "code,name,rate\nA1,Cook,1\nB2,Baker,2\n"
	calls := 0
	err := DecodeCSV(context.Background(), strings.NewReader(input), CSVOptions{}, func(_ int, _ testRow) error {
		calls++
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, calls)
}

func TestDecodeCSV_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := DecodeCSV(ctx, strings.NewReader("code,name,rate\nA1,Cook,1\n"), CSVOptions{}, func(_ int, _ testRow) error {
		t.Fatal("callback should not run")
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled")
}

func TestOpenText_UTF8BOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bom.csv")
	require.NoError(t, os.WriteFile(path, []byte("\xef\xbb\xbfcode,name,rate\nA1,Cook,1\n"), 0o644))

	f, err := OpenText(path, "")
	require.NoError(t, err)
	defer f.Close()

	var rows []testRow
	err = DecodeCSV(context.Background(), f, CSVOptions{}, func(_ int, v testRow) error {
		rows = append(rows, v)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "A1", rows[0].Code)
}

func TestOpenText_Windows1252(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latin.csv")
	// 0xE9 is e-acute in windows-1252.
	require.NoError(t, os.WriteFile(path, []byte("code,name,rate\nA1,Caf\xe9 Cook,1\n"), 0o644))

	f, err := OpenText(path, "windows-1252")
	require.NoError(t, err)
	defer f.Close()

	var rows []testRow
	err = DecodeCSV(context.Background(), f, CSVOptions{}, func(_ int, v testRow) error {
		rows = append(rows, v)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Café Cook", rows[0].Name)
}

func TestOpenText_Missing(t *testing.T) {
	_, err := OpenText(filepath.Join(t.TempDir(), "nope.csv"), "")
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.KindIO))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenText_UnknownCharset(t *testing.T) {
	_, err := OpenText("irrelevant.csv", "klingon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported charset")
}
