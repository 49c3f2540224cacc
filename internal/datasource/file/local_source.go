// Package file implements a local filesystem-backed data source.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultEncoding is assumed when no encoding name is configured.
const DefaultEncoding = "utf-8"

// Local is a filesystem data source that opens files from the local disk and
// decodes them to UTF-8.
type Local struct {
	path string
	enc  string
}

// NewLocal returns a new Local data source bound to the provided filesystem
// path. charset is an IANA name; empty means UTF-8.
func NewLocal(path, charset string) *Local { return &Local{path: path, enc: charset} }

// Open opens the configured path for reading and returns an io.ReadCloser
// yielding UTF-8 text.
//
// Behavior:
//   - If the context is already canceled or its deadline exceeded at the time
//     of the call, Open returns the context error immediately without touching
//     the filesystem.
//   - A leading byte order mark selects UTF-8 or UTF-16 regardless of the
//     configured encoding and is stripped from the stream.
//   - Any filesystem error is wrapped with the path for context, while still
//     permitting errors.Is/As checks by callers (e.g., errors.Is(err, os.ErrNotExist)).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	enc, err := LookupEncoding(l.enc)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	adviseSequential(f)
	dec := transform.NewReader(f, unicode.BOMOverride(enc.NewDecoder()))
	return rc{Reader: dec, Closer: f}, nil
}

// rc pairs a decoding reader with the file it reads from.
type rc struct {
	io.Reader
	io.Closer
}

// LookupEncoding resolves an IANA charset name such as "utf-8",
// "ISO-8859-1" or "windows-1252".
func LookupEncoding(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultEncoding
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("encoding %q is not supported", name)
	}
	return enc, nil
}
