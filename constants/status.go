package constants

// UploadStatus is the lifecycle status of an upload row in the status store.
type UploadStatus string

// Stable values (store these exact strings).
const (
	UploadStatusUploaded   UploadStatus = "UPLOADED"   // written by the intake side
	UploadStatusProcessing UploadStatus = "PROCESSING" // extraction in progress
	UploadStatusExtracted  UploadStatus = "EXTRACTED"  // terminal: record persisted
	UploadStatusFailed     UploadStatus = "FAILED"     // terminal failure
)

// Terminal reports whether no further transitions are allowed.
func (s UploadStatus) Terminal() bool {
	return s == UploadStatusExtracted || s == UploadStatusFailed
}
