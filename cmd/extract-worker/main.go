// Command extract-worker is the Cloud Functions entrypoint. It exposes the
// pipeline as a Pub/Sub CloudEvent function and as an HTTP function.
package main

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/joseph-ayodele/store-extractor/internal/bootstrap"
	"github.com/joseph-ayodele/store-extractor/internal/common"
	"github.com/joseph-ayodele/store-extractor/internal/extract"
	"github.com/joseph-ayodele/store-extractor/internal/pipeline"
)

var (
	w       *worker
	initErr error
	once    sync.Once
)

func init() {
	functions.CloudEvent("ExtractUpload", func(ctx context.Context, e event) error {
		if err := setup(); err != nil {
			return err
		}
		return w.handleEvent(ctx, e)
	})
	functions.HTTP("ExtractUploadHTTP", httpEntry)
}

// setup builds the clients once per instance. Clients live for the life of
// the instance and are never closed.
func setup() error {
	once.Do(func() {
		cfg := common.LoadConfig()
		logger := common.NewLogger(cfg.Log)
		slog.SetDefault(logger)
		if initErr = cfg.Validate(); initErr != nil {
			logger.Error("worker.init.config_invalid", "error", initErr)
			return
		}

		ctx := context.Background()
		blob, _, err := bootstrap.OpenBlob(ctx, cfg.Storage, logger)
		if err != nil {
			initErr = err
			logger.Error("worker.init.storage_failed", "error", err)
			return
		}
		stores, err := bootstrap.OpenStores(ctx, cfg, logger)
		if err != nil {
			initErr = err
			logger.Error("worker.init.store_failed", "error", err)
			return
		}
		providers, _ := bootstrap.Providers(cfg.LLM, logger)
		dispatcher := extract.NewDispatcher(providers, logger)
		w = newWorker(pipeline.NewProcessor(blob, stores.Uploads, stores.Records, dispatcher, logger), logger)
		logger.Info("worker.init.ok", "storage", cfg.Storage.Backend, "store", cfg.Store.Backend)
	})
	return initErr
}

// main runs the functions framework locally; on Cloud Functions the
// platform invokes the registered functions directly.
func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := funcframework.Start(port); err != nil {
		slog.Error("funcframework.start_failed", "error", err)
		os.Exit(1)
	}
}
