package extract

import (
	"context"

	"github.com/joseph-ayodele/store-extractor/internal/entity"
)

// Extractor turns one file into one normalized extraction result.
type Extractor interface {
	Extract(ctx context.Context, item entity.FileItem) (entity.ExtractionResult, error)
}
