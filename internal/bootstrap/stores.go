package bootstrap

import (
	"context"
	"log/slog"

	"cloud.google.com/go/firestore"
	gcs "cloud.google.com/go/storage"

	"github.com/joseph-ayodele/store-extractor/internal/common"
	"github.com/joseph-ayodele/store-extractor/internal/repository"
	"github.com/joseph-ayodele/store-extractor/internal/storage"
)

// Stores bundles the status and record stores of one backend. Claimer is nil
// for backends that cannot hand out work (Firestore).
type Stores struct {
	Uploads repository.UploadRepository
	Records repository.ExtractedRecordRepository
	Claimer repository.UploadClaimer
	Close   func()
}

// OpenStores connects the backend named by cfg.Store.Backend and migrates
// SQL schemas.
func OpenStores(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*Stores, error) {
	switch cfg.Store.Backend {
	case "firestore":
		client, err := firestore.NewClient(ctx, cfg.Store.ProjectID)
		if err != nil {
			return nil, common.NewAppError(common.KindConfigError, "firestore client", err)
		}
		fs := repository.NewFirestore(client, cfg.Store.UploadsTable, cfg.Store.ExtractedTable, logger)
		return &Stores{Uploads: fs, Records: fs, Close: func() { _ = client.Close() }}, nil

	case "postgres":
		pool, err := repository.Open(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		if err := repository.HealthCheck(ctx, pool, cfg.Database.DialTimeout, logger); err != nil {
			repository.Close(pool, logger)
			return nil, err
		}
		pg := repository.NewPostgres(pool, cfg.Store.UploadsTable, cfg.Store.ExtractedTable, logger)
		if err := pg.Migrate(ctx); err != nil {
			repository.Close(pool, logger)
			return nil, err
		}
		return &Stores{Uploads: pg, Records: pg, Claimer: pg, Close: func() { repository.Close(pool, logger) }}, nil

	case "sqlite":
		db, err := repository.OpenSQLite(ctx, cfg.Store.SQLitePath, cfg.Store.UploadsTable, cfg.Store.ExtractedTable, logger)
		if err != nil {
			return nil, err
		}
		return &Stores{Uploads: db, Records: db, Claimer: db, Close: func() { _ = db.Close() }}, nil
	}
	return nil, common.Errorf(common.KindConfigError, "unknown STORE_BACKEND %q", cfg.Store.Backend)
}

// OpenBlob returns the blob store named by cfg.Backend and its close func.
func OpenBlob(ctx context.Context, cfg common.StorageConfig, logger *slog.Logger) (storage.BlobStore, func(), error) {
	switch cfg.Backend {
	case "gcs":
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, nil, common.NewAppError(common.KindConfigError, "storage client", err)
		}
		return storage.NewGCS(client, cfg.Bucket, logger), func() { _ = client.Close() }, nil
	case "fs":
		return storage.NewFS(cfg.Root, logger), func() {}, nil
	}
	return nil, nil, common.Errorf(common.KindConfigError, "unknown STORAGE_BACKEND %q", cfg.Backend)
}
