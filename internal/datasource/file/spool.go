package file

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Spool copies r into a temporary file so a stream such as standard input
// can be opened more than once through Local. The returned cleanup removes
// the file.
//
// The copy runs on its own goroutine so a canceled ctx returns promptly even
// while r blocks; the copy then ends on its next read or write.
func Spool(ctx context.Context, r io.Reader) (string, func(), error) {
	f, err := os.CreateTemp("", "custref2sql-*.dump")
	if err != nil {
		return "", nil, fmt.Errorf("spool: %w", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }

	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(f, r)
		done <- err
	}()

	select {
	case <-ctx.Done():
		f.Close()
		cleanup()
		return "", nil, ctx.Err()
	case err := <-done:
		if err != nil {
			f.Close()
			cleanup()
			return "", nil, fmt.Errorf("spool: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("spool: %w", err)
	}
	return f.Name(), cleanup, nil
}
