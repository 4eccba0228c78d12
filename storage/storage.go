// Package storage persists pipeline run artifacts. The Store interface is a
// minimal object store; ReportStore layers run report encoding on top of it.
package storage

import (
	"context"
	"io"
	"time"
)

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
}

// Store defines the object storage operations the engine's persistence needs.
type Store interface {
	// Put writes data from reader to the given path, replacing any
	// existing object.
	Put(ctx context.Context, path string, reader io.Reader) error

	// Get returns a reader for the object at the given path. The caller
	// closes the returned ReadCloser.
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the object at the given path. Deleting a missing
	// object is not an error.
	Delete(ctx context.Context, path string) error

	// Exists reports whether an object exists at the given path.
	Exists(ctx context.Context, path string) (bool, error)

	// List returns metadata for all objects whose path starts with prefix,
	// sorted by path.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}
