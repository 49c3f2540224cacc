// Package datasource defines where dump bytes come from.
package datasource

import (
	"context"
	"io"
)

// Source opens a fresh reader over the dump. Open may be called more than
// once; each call starts from the beginning of the input.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
