package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned by Stat when no object exists under a key.
var ErrObjectNotFound = errors.New("storage: object not found")

// Object is an artifact copy to be written to the archive bucket.
type Object struct {
	Key         string
	Body        io.Reader
	Size        int64
	ContentType string
	Filename    string            // offered to browsers via Content-Disposition
	Metadata    map[string]string // stored as user metadata
}

// ObjectInfo describes an object already in the bucket.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	Filename     string
	Metadata     map[string]string
	LastModified time.Time
}

// ArtifactStore is the object storage the artifact archive writes to.
type ArtifactStore interface {
	// Put writes obj, replacing any object under the same key.
	Put(ctx context.Context, obj *Object) error

	// Stat returns ErrObjectNotFound when key is absent.
	Stat(ctx context.Context, key string) (*ObjectInfo, error)

	// URL returns the address an archived object is served from.
	URL(key string) string
}
