package storage

import (
	"context"
	"io"
)

// ObjectStorage defines common object operations across backends. The system
// uses two logical buckets, one for meeting attachments and one for profile
// pictures, each held by its own ObjectStorage instance. Key uniqueness is
// the caller's responsibility.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}
