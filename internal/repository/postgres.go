package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/store-extractor/constants"
	"github.com/joseph-ayodele/store-extractor/internal/common"
	"github.com/joseph-ayodele/store-extractor/internal/entity"
)

// Open creates a pgx pool from cfg.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	logger.Info("connecting to database")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database config", "error", err)
		return nil, common.NewAppError(common.KindConfigError, "parse DB_URL", err)
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "store-extractor"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprintf("%d", cfg.StatementTimeout.Milliseconds())
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, common.NewAppError(common.KindPersistenceError, "connect", err)
	}
	logger.Info("successfully connected to database")
	return pool, nil
}

// Close closes the pool.
func Close(pool *pgxpool.Pool, logger *slog.Logger) {
	logger.Info("closing database connections")
	if pool != nil {
		pool.Close()
	}
	logger.Info("database connections closed")
}

// HealthCheck pings the pool to catch DSN issues early.
func HealthCheck(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration, logger *slog.Logger) error {
	logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := pool.Ping(ctx); err != nil {
		return common.NewAppError(common.KindPersistenceError, "ping", err)
	}
	logger.Debug("database ping successful")
	return nil
}

// Postgres implements both stores and the intake claim on one pool.
type Postgres struct {
	pool         *pgxpool.Pool
	uploadsTable string
	uploads      string
	extracted    string
	logger       *slog.Logger
}

var (
	_ UploadRepository          = (*Postgres)(nil)
	_ ExtractedRecordRepository = (*Postgres)(nil)
	_ UploadClaimer             = (*Postgres)(nil)
)

func NewPostgres(pool *pgxpool.Pool, uploadsTable, extractedTable string, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{
		pool:         pool,
		uploadsTable: uploadsTable,
		uploads:      pgx.Identifier{uploadsTable}.Sanitize(),
		extracted:    pgx.Identifier{extractedTable}.Sanitize(),
		logger:       logger,
	}
}

// Migrate creates the tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + p.uploads + ` (
			store_id      TEXT NOT NULL,
			upload_id     TEXT NOT NULL,
			file_type     TEXT NOT NULL DEFAULT '',
			storage_path  TEXT NOT NULL DEFAULT '',
			status        TEXT NOT NULL DEFAULT 'UPLOADED',
			error_message TEXT NOT NULL DEFAULT '',
			uploaded_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			claimed_at    TIMESTAMPTZ,
			PRIMARY KEY (store_id, upload_id)
		)`,
		`ALTER TABLE ` + p.uploads + ` ADD COLUMN IF NOT EXISTS claimed_at TIMESTAMPTZ`,
		`CREATE INDEX IF NOT EXISTS ` + pgx.Identifier{p.uploadsTable + "_status_idx"}.Sanitize() +
			` ON ` + p.uploads + ` (status, uploaded_at)`,
		`CREATE TABLE IF NOT EXISTS ` + p.extracted + ` (
			store_id          TEXT NOT NULL,
			record_id         TEXT NOT NULL,
			type              TEXT NOT NULL,
			data              JSONB NOT NULL,
			extracted_at      TIMESTAMPTZ NOT NULL,
			extraction_method TEXT NOT NULL,
			PRIMARY KEY (store_id, record_id)
		)`,
	}
	for _, s := range stmts {
		if _, err := p.pool.Exec(ctx, s); err != nil {
			return common.NewAppError(common.KindPersistenceError, "migrate", err)
		}
	}
	return nil
}

func (p *Postgres) CreateUpload(ctx context.Context, u *entity.Upload) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO `+p.uploads+` (store_id, upload_id, file_type, storage_path, status, error_message, uploaded_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		u.StoreID, u.UploadID, string(u.FileType), u.StoragePath, string(u.Status), u.ErrorMessage, u.UploadedAt.UTC())
	if err != nil {
		p.logger.Error("repository.upload.create_failed", "store_id", u.StoreID, "upload_id", u.UploadID, "error", err)
		return common.NewAppError(common.KindPersistenceError, "create upload", err)
	}
	return nil
}

const uploadColumns = `store_id, upload_id, file_type, storage_path, status, error_message, uploaded_at, updated_at`

func scanUpload(row pgx.Row) (*entity.Upload, error) {
	var (
		u              entity.Upload
		fileType, stat string
	)
	if err := row.Scan(&u.StoreID, &u.UploadID, &fileType, &u.StoragePath, &stat, &u.ErrorMessage, &u.UploadedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.FileType = constants.FileType(fileType)
	u.Status = constants.UploadStatus(stat)
	return &u, nil
}

func (p *Postgres) GetUpload(ctx context.Context, storeID, uploadID string) (*entity.Upload, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+uploadColumns+` FROM `+p.uploads+` WHERE store_id = $1 AND upload_id = $2`, storeID, uploadID)
	u, err := scanUpload(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewAppError(common.KindPersistenceError, "upload "+uploadID, common.ErrNotFound)
	}
	if err != nil {
		return nil, common.NewAppError(common.KindPersistenceError, "get upload", err)
	}
	return u, nil
}

func (p *Postgres) UpdateStatus(ctx context.Context, storeID, uploadID string, status constants.UploadStatus, errMsg string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO `+p.uploads+` (store_id, upload_id, status, error_message, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (store_id, upload_id) DO UPDATE
		 SET status = EXCLUDED.status, error_message = EXCLUDED.error_message, updated_at = EXCLUDED.updated_at`,
		storeID, uploadID, string(status), errMsg)
	if err != nil {
		p.logger.Error("repository.upload.status_failed", "store_id", storeID, "upload_id", uploadID, "status", status, "error", err)
		return common.NewAppError(common.KindPersistenceError, "update upload status", err)
	}
	p.logger.Debug("repository.upload.status", "store_id", storeID, "upload_id", uploadID, "status", status)
	return nil
}

// ClaimUploaded leases up to limit UPLOADED rows whose previous lease, if
// any, has expired. Concurrent claimers skip each other's locked rows.
func (p *Postgres) ClaimUploaded(ctx context.Context, limit int) ([]entity.Upload, error) {
	now := time.Now().UTC()
	rows, err := p.pool.Query(ctx,
		`UPDATE `+p.uploads+` SET claimed_at = $1
		 WHERE (store_id, upload_id) IN (
			SELECT store_id, upload_id FROM `+p.uploads+`
			WHERE status = $2 AND (claimed_at IS NULL OR claimed_at < $3)
			ORDER BY uploaded_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+uploadColumns,
		now, string(constants.UploadStatusUploaded), now.Add(-ClaimLease), limit)
	if err != nil {
		return nil, common.NewAppError(common.KindPersistenceError, "claim uploads", err)
	}
	defer rows.Close()

	var out []entity.Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, common.NewAppError(common.KindPersistenceError, "scan claimed upload", err)
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError(common.KindPersistenceError, "claim uploads", err)
	}
	return out, nil
}

func (p *Postgres) ReleaseClaim(ctx context.Context, storeID, uploadID string) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE `+p.uploads+` SET claimed_at = NULL WHERE store_id = $1 AND upload_id = $2`, storeID, uploadID)
	if err != nil {
		return common.NewAppError(common.KindPersistenceError, "release claim", err)
	}
	return nil
}

func (p *Postgres) PutRecord(ctx context.Context, rec entity.ExtractedRecord) error {
	data, err := encodeData(rec.Data)
	if err != nil {
		return common.NewAppError(common.KindPersistenceError, "put record", err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO `+p.extracted+` (store_id, record_id, type, data, extracted_at, extraction_method)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (store_id, record_id) DO UPDATE
		 SET type = EXCLUDED.type, data = EXCLUDED.data, extracted_at = EXCLUDED.extracted_at, extraction_method = EXCLUDED.extraction_method`,
		rec.StoreID, rec.RecordID, string(rec.Type), data, rec.ExtractedAt.UTC(), string(rec.ExtractionMethod))
	if err != nil {
		p.logger.Error("repository.record.put_failed", "store_id", rec.StoreID, "record_id", rec.RecordID, "error", err)
		return common.NewAppError(common.KindPersistenceError, "put record", err)
	}
	return nil
}

func (p *Postgres) DeleteRecord(ctx context.Context, storeID, recordID string) error {
	_, err := p.pool.Exec(ctx,
		`DELETE FROM `+p.extracted+` WHERE store_id = $1 AND record_id = $2`, storeID, recordID)
	if err != nil {
		p.logger.Error("repository.record.delete_failed", "store_id", storeID, "record_id", recordID, "error", err)
		return common.NewAppError(common.KindPersistenceError, "delete record", err)
	}
	return nil
}

func (p *Postgres) GetRecord(ctx context.Context, storeID, recordID string) (*entity.ExtractedRecord, error) {
	var (
		rec         entity.ExtractedRecord
		typ, method string
		data        []byte
	)
	err := p.pool.QueryRow(ctx,
		`SELECT store_id, record_id, type, data, extracted_at, extraction_method FROM `+p.extracted+`
		 WHERE store_id = $1 AND record_id = $2`, storeID, recordID).
		Scan(&rec.StoreID, &rec.RecordID, &typ, &data, &rec.ExtractedAt, &method)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewAppError(common.KindPersistenceError, "record "+recordID, common.ErrNotFound)
	}
	if err != nil {
		return nil, common.NewAppError(common.KindPersistenceError, "get record", err)
	}
	if err := json.Unmarshal(data, &rec.Data); err != nil {
		return nil, common.NewAppError(common.KindPersistenceError, "decode record data", err)
	}
	rec.Type = constants.DataType(typ)
	rec.ExtractionMethod = constants.ExtractionMethod(method)
	return &rec, nil
}

// StatusCounts returns how many uploads are in each status.
func (p *Postgres) StatusCounts(ctx context.Context) (map[constants.UploadStatus]int, error) {
	rows, err := p.pool.Query(ctx, `SELECT status, count(*) FROM `+p.uploads+` GROUP BY status`)
	if err != nil {
		return nil, common.NewAppError(common.KindPersistenceError, "count uploads", err)
	}
	defer rows.Close()

	out := map[constants.UploadStatus]int{}
	for rows.Next() {
		var (
			st string
			n  int
		)
		if err := rows.Scan(&st, &n); err != nil {
			return nil, common.NewAppError(common.KindPersistenceError, "scan upload count", err)
		}
		out[constants.UploadStatus(st)] = n
	}
	return out, rows.Err()
}
