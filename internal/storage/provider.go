// Package storage defines the blob storage abstraction the JSON document
// stores sit on, so a collection can live on the local filesystem, in Google
// Cloud Storage or in memory.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by GetObject when no object exists at the path.
var ErrNotFound = errors.New("storage: object not found")

// BlobStore reads and writes whole objects by path.
type BlobStore interface {
	// GetObject returns the object content, or ErrNotFound.
	GetObject(ctx context.Context, path string) ([]byte, error)
	// PutObject replaces the object at path and returns its URI.
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}
