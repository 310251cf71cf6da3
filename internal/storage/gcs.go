package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/joseph-ayodele/store-extractor/internal/common"
)

// GCS is a BlobStore over one default bucket. Paths naming another bucket
// are honored.
type GCS struct {
	client *storage.Client
	bucket string
	logger *slog.Logger
}

var _ BlobStore = (*GCS)(nil)

func NewGCS(client *storage.Client, bucket string, logger *slog.Logger) *GCS {
	if logger == nil {
		logger = slog.Default()
	}
	return &GCS{client: client, bucket: bucket, logger: logger}
}

func (g *GCS) object(path string) (*storage.ObjectHandle, string, error) {
	bucket, key := SplitPath(path)
	if bucket == "" {
		bucket = g.bucket
	}
	if bucket == "" || key == "" {
		return nil, "", common.Errorf(common.KindStorageError, "invalid storage path %q", path)
	}
	return g.client.Bucket(bucket).Object(key), bucket + "/" + key, nil
}

func (g *GCS) Get(ctx context.Context, path string) ([]byte, error) {
	obj, name, err := g.object(path)
	if err != nil {
		return nil, err
	}
	r, err := obj.NewReader(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, common.NewAppError(common.KindStorageError, "object not found: "+name, common.ErrNotFound)
		}
		return nil, common.NewAppError(common.KindStorageError, "open "+name, err)
	}
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, common.NewAppError(common.KindStorageError, "read "+name, err)
	}
	g.logger.Debug("storage.gcs.get", "object", name, "bytes", len(data))
	return data, nil
}

// Put writes data only if the object does not exist yet; an existing object
// is left as is.
func (g *GCS) Put(ctx context.Context, path string, data []byte) error {
	obj, name, err := g.object(path)
	if err != nil {
		return err
	}
	w := obj.If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return common.NewAppError(common.KindStorageError, "write "+name, err)
	}
	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			g.logger.Info("storage.gcs.put_skipped", "object", name, "reason", "exists")
			return nil
		}
		return common.NewAppError(common.KindStorageError, fmt.Sprintf("finalize %s", name), err)
	}
	return nil
}

func isNotFound(err error) bool {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return true
	}
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
