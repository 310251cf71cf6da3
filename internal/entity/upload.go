package entity

import (
	"time"

	"github.com/joseph-ayodele/store-extractor/constants"
)

// Upload is a row of the status store, keyed by (StoreID, UploadID).
type Upload struct {
	StoreID      string                 `json:"store_id" firestore:"store_id"`
	UploadID     string                 `json:"upload_id" firestore:"upload_id"`
	FileType     constants.FileType     `json:"file_type" firestore:"file_type"`
	StoragePath  string                 `json:"s3_path" firestore:"s3_path"`
	Status       constants.UploadStatus `json:"status" firestore:"status"`
	ErrorMessage string                 `json:"error_message,omitempty" firestore:"error_message,omitempty"`
	UploadedAt   time.Time              `json:"uploaded_at" firestore:"uploaded_at"`
	UpdatedAt    time.Time              `json:"updated_at" firestore:"updated_at"`
}

// WorkItem returns the work item that processes this upload.
func (u Upload) WorkItem() WorkItem {
	return WorkItem{
		UploadID:    u.UploadID,
		StoreID:     u.StoreID,
		StoragePath: u.StoragePath,
		FileType:    string(u.FileType),
	}
}
