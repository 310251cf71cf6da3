// Package pipeline runs one work item from intake to a persisted record.
package pipeline

import (
	"context"
	"log/slog"
	"path"
	"time"

	"github.com/joseph-ayodele/store-extractor/constants"
	"github.com/joseph-ayodele/store-extractor/internal/common"
	"github.com/joseph-ayodele/store-extractor/internal/entity"
	"github.com/joseph-ayodele/store-extractor/internal/extract"
	"github.com/joseph-ayodele/store-extractor/internal/repository"
	"github.com/joseph-ayodele/store-extractor/internal/storage"
)

// Outcome summarizes one processed work item.
type Outcome struct {
	UploadID string                     `json:"upload_id"`
	StoreID  string                     `json:"store_id"`
	Status   constants.UploadStatus     `json:"status"`
	RecordID string                     `json:"record_id,omitempty"`
	Kind     constants.DataType         `json:"kind,omitempty"`
	Method   constants.ExtractionMethod `json:"method,omitempty"`
	// Fields is the number of top-level payload keys, reported to callers.
	Fields    int              `json:"extracted_fields,omitempty"`
	ErrorKind common.ErrorKind `json:"error_kind,omitempty"`
	Message   string           `json:"message,omitempty"`
}

// Processor moves an upload through PROCESSING to EXTRACTED or FAILED.
type Processor struct {
	blob      storage.BlobStore
	uploads   repository.UploadRepository
	records   repository.ExtractedRecordRepository
	extractor extract.Extractor
	logger    *slog.Logger
	now       func() time.Time
}

func NewProcessor(
	blob storage.BlobStore,
	uploads repository.UploadRepository,
	records repository.ExtractedRecordRepository,
	extractor extract.Extractor,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		blob:      blob,
		uploads:   uploads,
		records:   records,
		extractor: extractor,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func validate(item entity.WorkItem) error {
	return common.NewValidator().
		Field("upload_id", item.UploadID, common.Required, common.MaxLength(256)).
		Field("store_id", item.StoreID, common.Required, common.MaxLength(256)).
		Field("storage_path", item.StoragePath, common.Required, common.NoPathTraversal).
		Field("file_type", item.FileType, common.Required).
		AsAppError(common.KindMalformedWorkItem)
}

// Process runs one work item. A malformed item is rejected before any store
// is touched. Every other failure is recorded as FAILED (best effort) and
// returned along with the outcome; the item is never retried here.
func (p *Processor) Process(ctx context.Context, item entity.WorkItem) (Outcome, error) {
	out := Outcome{UploadID: item.UploadID, StoreID: item.StoreID}
	if err := validate(item); err != nil {
		p.logger.Warn("pipeline.item.malformed", "upload_id", item.UploadID, "store_id", item.StoreID, "error", err)
		out.Status = constants.UploadStatusFailed
		out.ErrorKind = common.KindOf(err)
		out.Message = err.Error()
		return out, err
	}

	ctx = common.WithStoreID(common.WithUploadID(ctx, item.UploadID), item.StoreID)
	logger := p.logger.With(common.LogAttrs(ctx)...)
	ctx = common.WithLogger(ctx, logger)

	start := time.Now()
	logger.Info("pipeline.process.start", "file_type", item.FileType, "storage_path", item.StoragePath)

	if err := p.uploads.UpdateStatus(ctx, item.StoreID, item.UploadID, constants.UploadStatusProcessing, ""); err != nil {
		return p.fail(ctx, logger, out, err, start)
	}

	data, err := p.blob.Get(ctx, item.StoragePath)
	if err != nil {
		return p.fail(ctx, logger, out, err, start)
	}

	_, key := storage.SplitPath(item.StoragePath)
	res, err := p.extractor.Extract(ctx, entity.FileItem{
		Data:     data,
		FileType: constants.ParseFileType(item.FileType),
		FileName: path.Base(key),
	})
	if err != nil {
		return p.fail(ctx, logger, out, err, start)
	}

	rec := entity.ExtractedRecord{
		StoreID:          item.StoreID,
		RecordID:         item.UploadID,
		Type:             res.Kind,
		Data:             res.Payload,
		ExtractedAt:      p.now(),
		ExtractionMethod: res.Method,
	}
	if err := p.records.PutRecord(ctx, rec); err != nil {
		return p.fail(ctx, logger, out, err, start)
	}
	if err := p.uploads.UpdateStatus(ctx, item.StoreID, item.UploadID, constants.UploadStatusExtracted, ""); err != nil {
		p.discard(ctx, logger, rec)
		return p.fail(ctx, logger, out, err, start)
	}

	out.Status = constants.UploadStatusExtracted
	out.RecordID = rec.RecordID
	out.Kind = res.Kind
	out.Method = res.Method
	out.Fields = len(res.Payload)
	logger.Info("pipeline.process.ok",
		"kind", res.Kind,
		"method", res.Method,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// discard removes a record whose item will not reach EXTRACTED, so a FAILED
// item leaves nothing behind. Best effort.
func (p *Processor) discard(ctx context.Context, logger *slog.Logger, rec entity.ExtractedRecord) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.records.DeleteRecord(wctx, rec.StoreID, rec.RecordID); err != nil {
		logger.Error("pipeline.record.orphaned", "record_id", rec.RecordID, "error", err)
	}
}

func (p *Processor) fail(ctx context.Context, logger *slog.Logger, out Outcome, cause error, start time.Time) (Outcome, error) {
	kind := common.KindOf(cause)
	logger.Error("pipeline.process.failed",
		"kind", kind,
		"error", cause,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	// The status write must not inherit an expired item deadline.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.uploads.UpdateStatus(wctx, out.StoreID, out.UploadID, constants.UploadStatusFailed, cause.Error()); err != nil {
		logger.Error("pipeline.status.failed_write", "error", err)
	}

	out.Status = constants.UploadStatusFailed
	out.ErrorKind = kind
	out.Message = cause.Error()
	return out, cause
}
