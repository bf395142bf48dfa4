package fetcher

import (
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/sells-group/sca-rates/internal/errkind"
)

// TextFile is an open text export decoded to UTF-8.
type TextFile struct {
	io.Reader
	f *os.File
}

// Close releases the underlying file handle.
func (t *TextFile) Close() error {
	return t.f.Close()
}

// OpenText opens path and decodes it from the named charset to UTF-8. The label
// is any WHATWG encoding name ("utf-8", "windows-1252", "latin1"); empty means
// UTF-8. A leading byte order mark is stripped and, when present, overrides the label.
// Open failures are classified as errkind.KindIO.
func OpenText(path, charset string) (*TextFile, error) {
	if strings.TrimSpace(charset) == "" {
		charset = "utf-8"
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: unsupported charset %q", charset)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errkind.IO(eris.Wrapf(err, "fetcher: open %s", path))
	}

	return &TextFile{
		Reader: transform.NewReader(f, unicode.BOMOverride(enc.NewDecoder())),
		f:      f,
	}, nil
}
