// Package storage defines where crawl artifacts (archived pages, the finished
// workbook) are written. Implementations live in the local and gcs
// subpackages.
package storage

import (
	"context"
	"io"
)

// BlobStore persists one object and returns its URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Nop discards every object. It is used when no artifact store is configured.
type Nop struct{}

// PutObject drains r and returns an empty URI.
func (Nop) PutObject(_ context.Context, _ string, _ string, r io.Reader) (string, error) {
	_, err := io.Copy(io.Discard, r)
	return "", err
}
