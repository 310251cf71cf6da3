package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/store-extractor/constants"
	"github.com/joseph-ayodele/store-extractor/internal/common"
	"github.com/joseph-ayodele/store-extractor/internal/entity"
)

// SQLite is the single-file backend used by the CLI and local runs.
type SQLite struct {
	db        *sql.DB
	uploads   string
	extracted string
	logger    *slog.Logger
}

var (
	_ UploadRepository          = (*SQLite)(nil)
	_ ExtractedRecordRepository = (*SQLite)(nil)
	_ UploadClaimer             = (*SQLite)(nil)
)

// OpenSQLite opens (creating if needed) the database at path and migrates it.
func OpenSQLite(ctx context.Context, path, uploadsTable, extractedTable string, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.NewAppError(common.KindPersistenceError, "open sqlite", err)
	}
	// one writer; sqlite serializes anyway
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db, uploads: quoteIdent(uploadsTable), extracted: quoteIdent(extractedTable), logger: logger}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("repository.sqlite.opened", "path", path)
	return s, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + s.uploads + ` (
			store_id      TEXT NOT NULL,
			upload_id     TEXT NOT NULL,
			file_type     TEXT NOT NULL DEFAULT '',
			storage_path  TEXT NOT NULL DEFAULT '',
			status        TEXT NOT NULL DEFAULT 'UPLOADED',
			error_message TEXT NOT NULL DEFAULT '',
			uploaded_at   TEXT NOT NULL,
			updated_at    TEXT NOT NULL,
			claimed_at    INTEGER,
			PRIMARY KEY (store_id, upload_id)
		)`,
		`CREATE TABLE IF NOT EXISTS ` + s.extracted + ` (
			store_id          TEXT NOT NULL,
			record_id         TEXT NOT NULL,
			type              TEXT NOT NULL,
			data              TEXT NOT NULL,
			extracted_at      TEXT NOT NULL,
			extraction_method TEXT NOT NULL,
			PRIMARY KEY (store_id, record_id)
		)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return common.NewAppError(common.KindPersistenceError, "migrate sqlite", err)
		}
	}
	return nil
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func (s *SQLite) CreateUpload(ctx context.Context, u *entity.Upload) error {
	ts := formatTime(u.UploadedAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO `+s.uploads+` (store_id, upload_id, file_type, storage_path, status, error_message, uploaded_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.StoreID, u.UploadID, string(u.FileType), u.StoragePath, string(u.Status), u.ErrorMessage, ts, ts)
	if err != nil {
		s.logger.Error("repository.upload.create_failed", "store_id", u.StoreID, "upload_id", u.UploadID, "error", err)
		return common.NewAppError(common.KindPersistenceError, "create upload", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteUpload(row rowScanner) (*entity.Upload, error) {
	var (
		u                        entity.Upload
		fileType, stat, upAt, ud string
	)
	if err := row.Scan(&u.StoreID, &u.UploadID, &fileType, &u.StoragePath, &stat, &u.ErrorMessage, &upAt, &ud); err != nil {
		return nil, err
	}
	var err error
	if u.UploadedAt, err = parseTime(upAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(ud); err != nil {
		return nil, err
	}
	u.FileType = constants.FileType(fileType)
	u.Status = constants.UploadStatus(stat)
	return &u, nil
}

func (s *SQLite) GetUpload(ctx context.Context, storeID, uploadID string) (*entity.Upload, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+uploadColumns+` FROM `+s.uploads+` WHERE store_id = ? AND upload_id = ?`, storeID, uploadID)
	u, err := scanSQLiteUpload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError(common.KindPersistenceError, "upload "+uploadID, common.ErrNotFound)
	}
	if err != nil {
		return nil, common.NewAppError(common.KindPersistenceError, "get upload", err)
	}
	return u, nil
}

func (s *SQLite) UpdateStatus(ctx context.Context, storeID, uploadID string, status constants.UploadStatus, errMsg string) error {
	now := formatTime(time.Now())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO `+s.uploads+` (store_id, upload_id, status, error_message, uploaded_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (store_id, upload_id) DO UPDATE
		 SET status = excluded.status, error_message = excluded.error_message, updated_at = excluded.updated_at`,
		storeID, uploadID, string(status), errMsg, now, now)
	if err != nil {
		s.logger.Error("repository.upload.status_failed", "store_id", storeID, "upload_id", uploadID, "status", status, "error", err)
		return common.NewAppError(common.KindPersistenceError, "update upload status", err)
	}
	s.logger.Debug("repository.upload.status", "store_id", storeID, "upload_id", uploadID, "status", status)
	return nil
}

// ClaimUploaded selects and leases rows inside one transaction; with a single
// connection no other claimer can interleave. Leases are unix nanoseconds.
func (s *SQLite) ClaimUploaded(ctx context.Context, limit int) ([]entity.Upload, error) {
	now := time.Now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.NewAppError(common.KindPersistenceError, "claim uploads", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`SELECT `+uploadColumns+` FROM `+s.uploads+`
		 WHERE status = ? AND (claimed_at IS NULL OR claimed_at < ?)
		 ORDER BY uploaded_at LIMIT ?`,
		string(constants.UploadStatusUploaded), now.Add(-ClaimLease).UnixNano(), limit)
	if err != nil {
		return nil, common.NewAppError(common.KindPersistenceError, "claim uploads", err)
	}
	var out []entity.Upload
	for rows.Next() {
		u, err := scanSQLiteUpload(rows)
		if err != nil {
			_ = rows.Close()
			return nil, common.NewAppError(common.KindPersistenceError, "scan claimed upload", err)
		}
		out = append(out, *u)
	}
	if err := rows.Close(); err != nil {
		return nil, common.NewAppError(common.KindPersistenceError, "claim uploads", err)
	}

	for _, u := range out {
		_, err := tx.ExecContext(ctx,
			`UPDATE `+s.uploads+` SET claimed_at = ? WHERE store_id = ? AND upload_id = ?`,
			now.UnixNano(), u.StoreID, u.UploadID)
		if err != nil {
			return nil, common.NewAppError(common.KindPersistenceError, "claim uploads", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, common.NewAppError(common.KindPersistenceError, "claim uploads", err)
	}
	return out, nil
}

func (s *SQLite) ReleaseClaim(ctx context.Context, storeID, uploadID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE `+s.uploads+` SET claimed_at = NULL WHERE store_id = ? AND upload_id = ?`, storeID, uploadID)
	if err != nil {
		return common.NewAppError(common.KindPersistenceError, "release claim", err)
	}
	return nil
}

func (s *SQLite) PutRecord(ctx context.Context, rec entity.ExtractedRecord) error {
	data, err := encodeData(rec.Data)
	if err != nil {
		return common.NewAppError(common.KindPersistenceError, "put record", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO `+s.extracted+` (store_id, record_id, type, data, extracted_at, extraction_method)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (store_id, record_id) DO UPDATE
		 SET type = excluded.type, data = excluded.data, extracted_at = excluded.extracted_at, extraction_method = excluded.extraction_method`,
		rec.StoreID, rec.RecordID, string(rec.Type), string(data), formatTime(rec.ExtractedAt), string(rec.ExtractionMethod))
	if err != nil {
		s.logger.Error("repository.record.put_failed", "store_id", rec.StoreID, "record_id", rec.RecordID, "error", err)
		return common.NewAppError(common.KindPersistenceError, "put record", err)
	}
	return nil
}

func (s *SQLite) DeleteRecord(ctx context.Context, storeID, recordID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM `+s.extracted+` WHERE store_id = ? AND record_id = ?`, storeID, recordID)
	if err != nil {
		s.logger.Error("repository.record.delete_failed", "store_id", storeID, "record_id", recordID, "error", err)
		return common.NewAppError(common.KindPersistenceError, "delete record", err)
	}
	return nil
}

func (s *SQLite) GetRecord(ctx context.Context, storeID, recordID string) (*entity.ExtractedRecord, error) {
	var (
		rec                   entity.ExtractedRecord
		typ, method, data, at string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT store_id, record_id, type, data, extracted_at, extraction_method FROM `+s.extracted+`
		 WHERE store_id = ? AND record_id = ?`, storeID, recordID).
		Scan(&rec.StoreID, &rec.RecordID, &typ, &data, &at, &method)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError(common.KindPersistenceError, "record "+recordID, common.ErrNotFound)
	}
	if err != nil {
		return nil, common.NewAppError(common.KindPersistenceError, "get record", err)
	}
	if err := json.Unmarshal([]byte(data), &rec.Data); err != nil {
		return nil, common.NewAppError(common.KindPersistenceError, "decode record data", err)
	}
	if rec.ExtractedAt, err = parseTime(at); err != nil {
		return nil, common.NewAppError(common.KindPersistenceError, "decode record time", err)
	}
	rec.Type = constants.DataType(typ)
	rec.ExtractionMethod = constants.ExtractionMethod(method)
	return &rec, nil
}
