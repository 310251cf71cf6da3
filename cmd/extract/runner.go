package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/store-extractor/constants"
	"github.com/joseph-ayodele/store-extractor/internal/common"
	"github.com/joseph-ayodele/store-extractor/internal/entity"
	"github.com/joseph-ayodele/store-extractor/internal/extract"
	"github.com/joseph-ayodele/store-extractor/internal/llm"
	"github.com/joseph-ayodele/store-extractor/internal/pipeline"
	"github.com/joseph-ayodele/store-extractor/internal/repository"
	"github.com/joseph-ayodele/store-extractor/internal/storage"
)

// runner processes local files against a local status store. Files are read
// through an fs blob store rooted at root.
type runner struct {
	root     string
	storeID  string
	fileType constants.FileType
	uploads  repository.UploadRepository
	proc     *pipeline.Processor
	logger   *slog.Logger
}

func newRunner(root, storeID string, fileType constants.FileType, db *repository.SQLite, providers []llm.Provider, logger *slog.Logger) *runner {
	blob := storage.NewFS(root, logger)
	return &runner{
		root:     root,
		storeID:  storeID,
		fileType: fileType,
		uploads:  db,
		proc:     pipeline.NewProcessor(blob, db, db, extract.NewDispatcher(providers, logger), logger),
		logger:   logger,
	}
}

// uploadID follows the "<PREFIX>_<STORE>_<DATE>_<id>" shape of the intake side.
func uploadID(fileType constants.FileType, storeID string, now time.Time) string {
	prefix := map[constants.DataType]string{
		constants.DataTypeSales:         "SAL",
		constants.DataTypeInventory:     "INV",
		constants.DataTypeInvoice:       "PUR",
		constants.DataTypeReceipt:       "RCT",
		constants.DataTypeBankStatement: "BNK",
	}[constants.DataTypeFor(fileType)]
	if prefix == "" {
		prefix = "UPL"
	}
	return prefix + "_" + storeID + "_" + now.UTC().Format("20060102") + "_" + uuid.NewString()[:8]
}

// one registers path (absolute, under root) as UPLOADED and processes it.
func (r *runner) one(ctx context.Context, path string) (pipeline.Outcome, error) {
	rel, err := filepath.Rel(r.root, path)
	if err != nil {
		return pipeline.Outcome{}, common.NewAppError(common.KindInternal, "relative path", err)
	}
	now := time.Now().UTC()
	up := &entity.Upload{
		StoreID:     r.storeID,
		UploadID:    uploadID(r.fileType, r.storeID, now),
		FileType:    r.fileType,
		StoragePath: filepath.ToSlash(rel),
		Status:      constants.UploadStatusUploaded,
		UploadedAt:  now,
	}
	if err := r.uploads.CreateUpload(ctx, up); err != nil {
		return pipeline.Outcome{UploadID: up.UploadID, StoreID: up.StoreID, Status: constants.UploadStatusFailed}, err
	}
	return r.proc.Process(ctx, up.WorkItem())
}

type result struct {
	Path    string           `json:"path"`
	Outcome pipeline.Outcome `json:"outcome"`
}

// many processes paths with at most limit in flight. Results keep the input
// order; per-file failures are reported in their outcome, not returned.
func (r *runner) many(ctx context.Context, paths []string, limit int) ([]result, error) {
	results := make([]result, len(paths))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))
	for i, p := range paths {
		g.Go(func() error {
			out, err := r.one(gctx, p)
			if err != nil {
				r.logger.Warn("extract.file.failed", "path", p, "kind", common.KindOf(err), "error", err)
			}
			mu.Lock()
			results[i] = result{Path: p, Outcome: out}
			mu.Unlock()
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
