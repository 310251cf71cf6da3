// Package storage reads uploaded file bytes from object storage.
package storage

import (
	"context"
	"strings"
)

// BlobStore fetches and stores raw file bytes by storage path.
type BlobStore interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Put(ctx context.Context, path string, data []byte) error
}

// SplitPath splits "gs://bucket/key" or "s3://bucket/key" into bucket and key.
// A path without a scheme is a key in the default bucket.
func SplitPath(path string) (bucket, key string) {
	for _, scheme := range []string{"gs://", "s3://"} {
		if rest, ok := strings.CutPrefix(path, scheme); ok {
			bucket, key, _ = strings.Cut(rest, "/")
			return bucket, key
		}
	}
	return "", strings.TrimPrefix(path, "/")
}
