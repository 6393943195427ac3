package storage

import (
	"context"
	"io"
)

// ObjectStorage is the subset of an S3-style object store the backend relies on.
type ObjectStorage interface {
	// Upload writes size bytes from reader under key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
}
