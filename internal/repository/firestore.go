package repository

import (
	"context"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/store-extractor/constants"
	"github.com/joseph-ayodele/store-extractor/internal/common"
	"github.com/joseph-ayodele/store-extractor/internal/entity"
)

// Firestore keeps uploads and extracted records in two collections. Document
// IDs are "<storeID>_<uploadID>".
type Firestore struct {
	client    *firestore.Client
	uploads   string
	extracted string
	logger    *slog.Logger
}

var (
	_ UploadRepository          = (*Firestore)(nil)
	_ ExtractedRecordRepository = (*Firestore)(nil)
)

func NewFirestore(client *firestore.Client, uploadsCollection, extractedCollection string, logger *slog.Logger) *Firestore {
	if logger == nil {
		logger = slog.Default()
	}
	return &Firestore{client: client, uploads: uploadsCollection, extracted: extractedCollection, logger: logger}
}

func docID(storeID, id string) string { return storeID + "_" + id }

func notFound(err error) bool { return status.Code(err) == codes.NotFound }

func (f *Firestore) CreateUpload(ctx context.Context, u *entity.Upload) error {
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.UploadedAt
	}
	_, err := f.client.Collection(f.uploads).Doc(docID(u.StoreID, u.UploadID)).Create(ctx, u)
	if err != nil {
		f.logger.Error("repository.upload.create_failed", "store_id", u.StoreID, "upload_id", u.UploadID, "error", err)
		return common.NewAppError(common.KindPersistenceError, "create upload", err)
	}
	return nil
}

func (f *Firestore) GetUpload(ctx context.Context, storeID, uploadID string) (*entity.Upload, error) {
	snap, err := f.client.Collection(f.uploads).Doc(docID(storeID, uploadID)).Get(ctx)
	if notFound(err) {
		return nil, common.NewAppError(common.KindPersistenceError, "upload "+uploadID, common.ErrNotFound)
	}
	if err != nil {
		return nil, common.NewAppError(common.KindPersistenceError, "get upload", err)
	}
	var u entity.Upload
	if err := snap.DataTo(&u); err != nil {
		return nil, common.NewAppError(common.KindPersistenceError, "decode upload", err)
	}
	return &u, nil
}

// UpdateStatus merges status fields into the upload document, creating it
// when absent.
func (f *Firestore) UpdateStatus(ctx context.Context, storeID, uploadID string, st constants.UploadStatus, errMsg string) error {
	fields := map[string]any{
		"store_id":      storeID,
		"upload_id":     uploadID,
		"status":        string(st),
		"error_message": errMsg,
		"updated_at":    time.Now().UTC(),
	}
	_, err := f.client.Collection(f.uploads).Doc(docID(storeID, uploadID)).Set(ctx, fields, firestore.MergeAll)
	if err != nil {
		f.logger.Error("repository.upload.status_failed", "store_id", storeID, "upload_id", uploadID, "status", st, "error", err)
		return common.NewAppError(common.KindPersistenceError, "update upload status", err)
	}
	f.logger.Debug("repository.upload.status", "store_id", storeID, "upload_id", uploadID, "status", st)
	return nil
}

func (f *Firestore) PutRecord(ctx context.Context, rec entity.ExtractedRecord) error {
	data, err := plainData(rec.Data)
	if err != nil {
		return common.NewAppError(common.KindPersistenceError, "put record", err)
	}
	doc := map[string]any{
		"store_id":          rec.StoreID,
		"record_id":         rec.RecordID,
		"type":              string(rec.Type),
		"data":              data,
		"extracted_at":      rec.ExtractedAt.UTC(),
		"extraction_method": string(rec.ExtractionMethod),
	}
	if _, err := f.client.Collection(f.extracted).Doc(docID(rec.StoreID, rec.RecordID)).Set(ctx, doc); err != nil {
		f.logger.Error("repository.record.put_failed", "store_id", rec.StoreID, "record_id", rec.RecordID, "error", err)
		return common.NewAppError(common.KindPersistenceError, "put record", err)
	}
	return nil
}

// DeleteRecord succeeds for a missing document; Firestore deletes are
// unconditional without a precondition.
func (f *Firestore) DeleteRecord(ctx context.Context, storeID, recordID string) error {
	if _, err := f.client.Collection(f.extracted).Doc(docID(storeID, recordID)).Delete(ctx); err != nil {
		f.logger.Error("repository.record.delete_failed", "store_id", storeID, "record_id", recordID, "error", err)
		return common.NewAppError(common.KindPersistenceError, "delete record", err)
	}
	return nil
}

func (f *Firestore) GetRecord(ctx context.Context, storeID, recordID string) (*entity.ExtractedRecord, error) {
	snap, err := f.client.Collection(f.extracted).Doc(docID(storeID, recordID)).Get(ctx)
	if notFound(err) {
		return nil, common.NewAppError(common.KindPersistenceError, "record "+recordID, common.ErrNotFound)
	}
	if err != nil {
		return nil, common.NewAppError(common.KindPersistenceError, "get record", err)
	}
	var doc struct {
		StoreID          string         `firestore:"store_id"`
		RecordID         string         `firestore:"record_id"`
		Type             string         `firestore:"type"`
		Data             map[string]any `firestore:"data"`
		ExtractedAt      time.Time      `firestore:"extracted_at"`
		ExtractionMethod string         `firestore:"extraction_method"`
	}
	if err := snap.DataTo(&doc); err != nil {
		return nil, common.NewAppError(common.KindPersistenceError, "decode record", err)
	}
	return &entity.ExtractedRecord{
		StoreID:          doc.StoreID,
		RecordID:         doc.RecordID,
		Type:             constants.DataType(doc.Type),
		Data:             doc.Data,
		ExtractedAt:      doc.ExtractedAt,
		ExtractionMethod: constants.ExtractionMethod(doc.ExtractionMethod),
	}, nil
}
