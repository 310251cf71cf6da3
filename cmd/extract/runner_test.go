package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joseph-ayodele/store-extractor/constants"
	"github.com/joseph-ayodele/store-extractor/internal/common"
	"github.com/joseph-ayodele/store-extractor/internal/repository"
)

func testRunner(t *testing.T, root string, fileType constants.FileType) (*runner, *repository.SQLite) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := repository.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "cli.db"), "Uploads", "ExtractedData", logger)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return newRunner(root, "STORE001", fileType, db, nil, logger), db
}

func TestRunnerMany_SalesDirectory(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"jan.csv":     "Date,Product,Qty,Price\n2024-01-01,Rice,2,10\n2024-01-02,Dal,1,x\n",
		"sub/feb.csv": "Date,Product,Qty,Price\n2024-02-01,Salt,3,5.25\n",
		"bad.csv":     "Date,Item,Count\n2024-03-01,Tea,1\n",
	}
	var paths []string
	for name, body := range files {
		p := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}

	r, db := testRunner(t, root, constants.FileTypeSalesCSV)
	results, err := r.many(context.Background(), paths, 2)
	if err != nil {
		t.Fatalf("many: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d", len(results))
	}
	for _, res := range results {
		wantStatus := constants.UploadStatusExtracted
		if strings.HasSuffix(res.Path, "bad.csv") {
			wantStatus = constants.UploadStatusFailed
			if res.Outcome.ErrorKind != common.KindSchemaMismatch {
				t.Errorf("bad.csv kind = %s", res.Outcome.ErrorKind)
			}
		}
		if res.Outcome.Status != wantStatus {
			t.Errorf("%s status = %s", res.Path, res.Outcome.Status)
		}
		up, err := db.GetUpload(context.Background(), "STORE001", res.Outcome.UploadID)
		if err != nil {
			t.Fatalf("get upload: %v", err)
		}
		if up.Status != wantStatus {
			t.Errorf("%s stored status = %s", res.Path, up.Status)
		}
	}
}

func TestRunnerOne_RecordStored(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "stock.csv")
	if err := os.WriteFile(p, []byte("SKU,Qty\nA1,5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	r, db := testRunner(t, root, constants.FileTypeInventoryCSV)
	out, err := r.one(context.Background(), p)
	if err != nil {
		t.Fatalf("one: %v", err)
	}
	rec, err := db.GetRecord(context.Background(), "STORE001", out.RecordID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if rec.Type != constants.DataTypeInventory || rec.Data["total_records"] != float64(1) {
		t.Fatalf("record = %+v", rec)
	}
}

func TestUploadID(t *testing.T) {
	day := time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)
	id := uploadID(constants.FileTypePurchaseOrderImage, "STORE001", day)
	if !strings.HasPrefix(id, "PUR_STORE001_20260215_") || len(id) != len("PUR_STORE001_20260215_")+8 {
		t.Fatalf("id = %q", id)
	}
	if got := uploadID(constants.FileType("other"), "S", day); !strings.HasPrefix(got, "UPL_S_") {
		t.Fatalf("id = %q", got)
	}
}
