// Package evidence holds the binary content behind proof evidence
// references. The certification core never interprets the content; it only
// needs to resolve references to confirm they exist.
package evidence

import (
	"context"
	"io"
)

type Store interface {
	// Put stores content under ref, overwriting any previous content.
	Put(ctx context.Context, ref string, contentType string, body io.Reader) error
	// Get returns the content for ref. The caller must close the reader.
	Get(ctx context.Context, ref string) (io.ReadCloser, error)
	// Exists reports whether ref resolves to stored content.
	Exists(ctx context.Context, ref string) (bool, error)
}
