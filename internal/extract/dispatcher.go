// Package extract routes a declared file type to tabular parsing or a model
// call and returns one normalized result.
package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/store-extractor/constants"
	"github.com/joseph-ayodele/store-extractor/internal/common"
	"github.com/joseph-ayodele/store-extractor/internal/document"
	"github.com/joseph-ayodele/store-extractor/internal/entity"
	"github.com/joseph-ayodele/store-extractor/internal/llm"
	"github.com/joseph-ayodele/store-extractor/internal/tabular"
)

type Dispatcher struct {
	providers []llm.Provider
	logger    *slog.Logger
}

var _ Extractor = (*Dispatcher)(nil)

// NewDispatcher takes providers in probe order; the first available one with
// the needed capability serves each call.
func NewDispatcher(providers []llm.Provider, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{providers: providers, logger: logger}
}

func (d *Dispatcher) Extract(ctx context.Context, item entity.FileItem) (entity.ExtractionResult, error) {
	logger := common.LoggerFromContext(ctx, d.logger)
	start := time.Now()
	logger.Info("extract.dispatch.start", "file_type", item.FileType, "file_name", item.FileName, "bytes", len(item.Data))

	var (
		res entity.ExtractionResult
		err error
	)
	switch {
	case item.FileType.IsTabular():
		res, err = tabular.Extract(item.Data, item.FileType, item.FileName, logger)
	case item.FileType.IsImage():
		res, err = d.extractImage(ctx, item, logger)
	case item.FileType.IsDocument():
		res, err = d.extractDocument(ctx, item, logger)
	default:
		err = common.Errorf(common.KindUnsupportedFileType, "unsupported file type: %q", item.FileType)
	}
	if err != nil {
		logger.Error("extract.dispatch.failed",
			"file_type", item.FileType,
			"kind", common.KindOf(err),
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractionResult{}, err
	}

	logger.Info("extract.dispatch.ok",
		"file_type", item.FileType,
		"kind", res.Kind,
		"method", res.Method,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (d *Dispatcher) extractImage(ctx context.Context, item entity.FileItem, logger *slog.Logger) (entity.ExtractionResult, error) {
	p, err := llm.SelectImage(d.providers)
	if err != nil {
		return entity.ExtractionResult{}, err
	}
	mimeType := constants.MimeTypeFor(item.FileName)
	logger.Info("extract.model.selected", "provider", p.Name(), "capability", llm.CapabilityImage, "mime_type", mimeType)

	payload, err := p.ExtractFromImage(ctx, item.Data, llm.PromptFor(item.FileType), mimeType)
	if err != nil {
		return entity.ExtractionResult{}, err
	}
	return d.modelResult(item.FileType, payload, logger)
}

func (d *Dispatcher) extractDocument(ctx context.Context, item entity.FileItem, logger *slog.Logger) (entity.ExtractionResult, error) {
	p, err := llm.SelectText(d.providers)
	if err != nil {
		return entity.ExtractionResult{}, err
	}
	logger.Info("extract.model.selected", "provider", p.Name(), "capability", llm.CapabilityText)

	text := document.Text(item.Data, item.FileName, logger)
	payload, err := p.ExtractFromText(ctx, text, llm.PromptFor(item.FileType))
	if err != nil {
		return entity.ExtractionResult{}, err
	}
	return d.modelResult(item.FileType, payload, logger)
}

// modelResult normalizes numeric text and checks the payload's shape.
func (d *Dispatcher) modelResult(fileType constants.FileType, payload map[string]any, logger *slog.Logger) (entity.ExtractionResult, error) {
	kind := constants.DataTypeFor(fileType)
	if changed := llm.CoerceNumbers(kind, payload); len(changed) > 0 {
		logger.Warn("extract.model.numbers_coerced", "kind", kind, "fields", changed)
	}
	if err := llm.ValidatePayload(kind, payload); err != nil {
		return entity.ExtractionResult{}, err
	}
	return entity.ExtractionResult{
		Kind:    kind,
		Payload: payload,
		Method:  constants.MethodModelCall,
	}, nil
}
