package entity

import "encoding/json"

// WorkItem is one unit of extraction work handed over by the intake side.
// FileType is kept as the raw declared tag; routing normalizes it.
type WorkItem struct {
	UploadID    string `json:"upload_id"`
	StoreID     string `json:"store_id"`
	StoragePath string `json:"storage_path"`
	FileType    string `json:"file_type"`
}

// UnmarshalJSON accepts both "storage_path" and the legacy "s3_path" key.
func (w *WorkItem) UnmarshalJSON(b []byte) error {
	var raw struct {
		UploadID    string `json:"upload_id"`
		StoreID     string `json:"store_id"`
		StoragePath string `json:"storage_path"`
		S3Path      string `json:"s3_path"`
		FileType    string `json:"file_type"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	w.UploadID = raw.UploadID
	w.StoreID = raw.StoreID
	w.FileType = raw.FileType
	w.StoragePath = raw.StoragePath
	if w.StoragePath == "" {
		w.StoragePath = raw.S3Path
	}
	return nil
}
