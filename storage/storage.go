// Package storage is the blob store for uploaded audio. Backends live in
// subpackages and register themselves with RegisterFactory; import the ones
// a binary needs for their side effect.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned (wrapped) by every backend when a path has no object.
var ErrNotFound = errors.New("storage: object not found")

// IsNotFound reports whether err is a blob miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// FileInfo describes one stored object.
type FileInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// Storage is a path-addressed blob store.
type Storage interface {
	// Upload writes reader to path, replacing any existing object.
	Upload(ctx context.Context, path string, reader io.Reader) error

	// Download opens the object at path. The caller closes the reader.
	// A missing object yields an error matching ErrNotFound.
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the object; deleting a missing object is not an error.
	Delete(ctx context.Context, path string) error

	Exists(ctx context.Context, path string) (bool, error)

	// URL is the public address of the object. It does not check existence.
	URL(ctx context.Context, path string) (string, error)

	List(ctx context.Context, prefix string) ([]FileInfo, error)
}

// SignedURLProvider is implemented by backends that can mint time-limited
// download links for private buckets.
type SignedURLProvider interface {
	SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error)
}
