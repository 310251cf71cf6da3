package entity

import (
	"time"

	"github.com/joseph-ayodele/store-extractor/constants"
)

// FileItem is the immutable input of the dispatcher.
type FileItem struct {
	Data     []byte
	FileType constants.FileType
	FileName string
}

// ExtractionResult is the normalized output of the dispatcher. Numeric
// money/quantity values inside Payload are decimal.Decimal.
type ExtractionResult struct {
	Kind    constants.DataType
	Payload map[string]any
	Method  constants.ExtractionMethod
}

// ExtractedRecord is the persisted envelope, keyed by (StoreID, RecordID).
type ExtractedRecord struct {
	StoreID          string                     `json:"store_id"`
	RecordID         string                     `json:"record_id"`
	Type             constants.DataType         `json:"type"`
	Data             map[string]any             `json:"data"`
	ExtractedAt      time.Time                  `json:"extracted_at"`
	ExtractionMethod constants.ExtractionMethod `json:"extraction_method"`
}
