package errkind

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapNil(t *testing.T) {
	assert.NoError(t, IO(nil))
	assert.NoError(t, Parse(nil))
	assert.NoError(t, Format(nil))
}

func TestOf_ThroughErisWrap(t *testing.T) {
	base := Parse(errors.New("bad rate"))
	wrapped := eris.Wrap(base, "sca: read source")

	assert.Equal(t, KindParse, Of(wrapped))
	assert.True(t, Is(wrapped, KindParse))
	assert.False(t, Is(wrapped, KindIO))
	assert.Contains(t, wrapped.Error(), "bad rate")
}

func TestOf_Unclassified(t *testing.T) {
	assert.Equal(t, Kind(""), Of(errors.New("plain")))
	assert.False(t, Is(nil, KindIO))
}

func TestIsExist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.sql")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	require.Error(t, err)

	assert.True(t, IsExist(IO(err)))
	assert.False(t, IsExist(Format(err)))
	assert.False(t, IsExist(IO(fs.ErrNotExist)))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain", errors.New("x"), 1},
		{"io", IO(errors.New("x")), 2},
		{"parse", eris.Wrap(Parse(errors.New("x")), "ctx"), 3},
		{"format", Format(errors.New("x")), 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
