// Package repository persists upload status and extracted records.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/joseph-ayodele/store-extractor/constants"
	"github.com/joseph-ayodele/store-extractor/internal/entity"
)

// UploadRepository is the status store. Each upload is keyed by
// (storeID, uploadID); writes are per-key and need no compare-and-swap.
type UploadRepository interface {
	CreateUpload(ctx context.Context, u *entity.Upload) error
	GetUpload(ctx context.Context, storeID, uploadID string) (*entity.Upload, error)
	// UpdateStatus sets status and error message, creating the row if needed.
	UpdateStatus(ctx context.Context, storeID, uploadID string, status constants.UploadStatus, errMsg string) error
}

// ExtractedRecordRepository is the extracted-record store, keyed by
// (storeID, recordID).
type ExtractedRecordRepository interface {
	PutRecord(ctx context.Context, rec entity.ExtractedRecord) error
	GetRecord(ctx context.Context, storeID, recordID string) (*entity.ExtractedRecord, error)
	// DeleteRecord removes a record; a missing record is not an error.
	DeleteRecord(ctx context.Context, storeID, recordID string) error
}

// ClaimLease is how long a claimed UPLOADED row stays hidden from other
// claimers. A row whose worker never wrote PROCESSING becomes claimable
// again once the lease runs out.
const ClaimLease = 15 * time.Minute

// UploadClaimer hands out UPLOADED rows to one worker at a time. Claiming
// takes a lease on the row and leaves its status alone.
type UploadClaimer interface {
	ClaimUploaded(ctx context.Context, limit int) ([]entity.Upload, error)
	// ReleaseClaim drops the lease so the row is claimable right away.
	ReleaseClaim(ctx context.Context, storeID, uploadID string) error
}

// encodeData renders a payload as JSON. Decimals become strings.
func encodeData(data map[string]any) ([]byte, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode record data: %w", err)
	}
	return b, nil
}

// plainData returns a copy of data holding only JSON scalar, map and slice
// values, which every backend can store.
func plainData(data map[string]any) (map[string]any, error) {
	b, err := encodeData(data)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode record data: %w", err)
	}
	return out, nil
}
