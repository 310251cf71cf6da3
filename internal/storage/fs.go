package storage

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/store-extractor/internal/common"
)

// FS is a BlobStore rooted at a local directory. A bucket in the path becomes
// the first directory under root.
type FS struct {
	root   string
	logger *slog.Logger
}

var _ BlobStore = (*FS)(nil)

func NewFS(root string, logger *slog.Logger) *FS {
	if logger == nil {
		logger = slog.Default()
	}
	return &FS{root: root, logger: logger}
}

func (s *FS) resolve(path string) (string, error) {
	bucket, key := SplitPath(path)
	rel := filepath.Join(bucket, filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(key) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", common.NewAppError(common.KindStorageError, "invalid storage path "+path, common.ErrInvalidInput)
	}
	return filepath.Join(s.root, rel), nil
}

func (s *FS) Get(_ context.Context, path string) ([]byte, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, common.NewAppError(common.KindStorageError, "object not found: "+path, common.ErrNotFound)
	}
	if err != nil {
		return nil, common.NewAppError(common.KindStorageError, "read "+path, err)
	}
	s.logger.Debug("storage.fs.get", "path", full, "bytes", len(data))
	return data, nil
}

func (s *FS) Put(_ context.Context, path string, data []byte) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return common.NewAppError(common.KindStorageError, "mkdir for "+path, err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return common.NewAppError(common.KindStorageError, "write "+path, err)
	}
	return nil
}
