package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/store-extractor/constants"
	"github.com/joseph-ayodele/store-extractor/internal/common"
	"github.com/joseph-ayodele/store-extractor/internal/entity"
)

// Runs against the Firestore emulator when FIRESTORE_EMULATOR_HOST is set.
func TestFirestore_StatusAndRecord(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	client, err := firestore.NewClient(ctx, "demo-store-extractor")
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	defer func() { _ = client.Close() }()

	fs := NewFirestore(client, "Uploads", "ExtractedData", slog.New(slog.NewTextHandler(io.Discard, nil)))
	id := "u-" + time.Now().Format("150405.000000")

	if err := fs.UpdateStatus(ctx, "STORE001", id, constants.UploadStatusFailed, "boom"); err != nil {
		t.Fatalf("update: %v", err)
	}
	up, err := fs.GetUpload(ctx, "STORE001", id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if up.Status != constants.UploadStatusFailed || up.ErrorMessage != "boom" {
		t.Fatalf("upload = %+v", up)
	}

	if err := fs.PutRecord(ctx, entity.ExtractedRecord{
		StoreID: "STORE001", RecordID: id, Type: constants.DataTypeReceipt,
		Data:        map[string]any{"total_amount": decimal.RequireFromString("99.90")},
		ExtractedAt: time.Now(), ExtractionMethod: constants.MethodModelCall,
	}); err != nil {
		t.Fatalf("put: %v", err)
	}
	rec, err := fs.GetRecord(ctx, "STORE001", id)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if rec.Data["total_amount"] != "99.9" {
		t.Fatalf("total_amount = %#v", rec.Data["total_amount"])
	}

	if _, err := fs.GetUpload(ctx, "STORE001", "missing-"+id); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("missing err = %v", err)
	}
}
