package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/store-extractor/constants"
	"github.com/joseph-ayodele/store-extractor/internal/common"
	"github.com/joseph-ayodele/store-extractor/internal/entity"
	"github.com/joseph-ayodele/store-extractor/internal/extract"
	"github.com/joseph-ayodele/store-extractor/internal/llm"
	"github.com/joseph-ayodele/store-extractor/internal/llm/openai"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memBlob map[string][]byte

func (m memBlob) Get(_ context.Context, path string) ([]byte, error) {
	b, ok := m[path]
	if !ok {
		return nil, common.NewAppError(common.KindStorageError, "object not found: "+path, common.ErrNotFound)
	}
	return b, nil
}

func (m memBlob) Put(_ context.Context, path string, data []byte) error {
	m[path] = data
	return nil
}

// memUploads records every status write in order.
type memUploads struct {
	mu      sync.Mutex
	history []constants.UploadStatus
	lastMsg string
	failOn  constants.UploadStatus
}

func (m *memUploads) CreateUpload(context.Context, *entity.Upload) error { return nil }

func (m *memUploads) GetUpload(context.Context, string, string) (*entity.Upload, error) {
	return nil, common.ErrNotFound
}

func (m *memUploads) UpdateStatus(_ context.Context, _, _ string, status constants.UploadStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if status == m.failOn {
		return common.Errorf(common.KindPersistenceError, "store down")
	}
	m.history = append(m.history, status)
	m.lastMsg = errMsg
	return nil
}

type memRecords struct {
	mu   sync.Mutex
	recs []entity.ExtractedRecord
}

func (m *memRecords) PutRecord(_ context.Context, rec entity.ExtractedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memRecords) DeleteRecord(_ context.Context, storeID, recordID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.recs[:0]
	for _, r := range m.recs {
		if r.StoreID != storeID || r.RecordID != recordID {
			kept = append(kept, r)
		}
	}
	m.recs = kept
	return nil
}

func (m *memRecords) GetRecord(context.Context, string, string) (*entity.ExtractedRecord, error) {
	return nil, common.ErrNotFound
}

type countingExtractor struct {
	calls int
}

func (c *countingExtractor) Extract(context.Context, entity.FileItem) (entity.ExtractionResult, error) {
	c.calls++
	return entity.ExtractionResult{}, errors.New("should not be called")
}

func TestProcess_SalesTableEndToEnd(t *testing.T) {
	csv := "Date,Product,Qty,Price\n" +
		"2024-01-01,Rice,2,10\n" +
		"2024-01-01,Dal,1,abc\n" +
		"2024-01-02,Salt,3,5.25\n" +
		"2024-01-03,Soap,4,12\n"
	blob := memBlob{"gs://uploads/STORE001/u-1/sales.csv": []byte(csv)}
	uploads := &memUploads{}
	records := &memRecords{}
	p := NewProcessor(blob, uploads, records, extract.NewDispatcher(nil, quietLogger()), quietLogger())

	out, err := p.Process(context.Background(), entity.WorkItem{
		UploadID:    "u-1",
		StoreID:     "STORE001",
		StoragePath: "gs://uploads/STORE001/u-1/sales.csv",
		FileType:    "sales_csv",
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out.Status != constants.UploadStatusExtracted || out.Method != constants.MethodTableParse || out.RecordID != "u-1" {
		t.Fatalf("outcome = %+v", out)
	}

	want := []constants.UploadStatus{constants.UploadStatusProcessing, constants.UploadStatusExtracted}
	if diff := cmp.Diff(want, uploads.history); diff != "" {
		t.Fatalf("status history (-want +got):\n%s", diff)
	}
	if len(records.recs) != 1 {
		t.Fatalf("records = %d", len(records.recs))
	}
	rec := records.recs[0]
	if rec.Type != constants.DataTypeSales || rec.Data["total_records"] != 3 {
		t.Fatalf("record = %+v", rec)
	}
	if rec.StoreID != "STORE001" || rec.ExtractedAt.Location() != time.UTC {
		t.Fatalf("envelope = %+v", rec)
	}
}

func TestProcess_InvoiceModelTimeout(t *testing.T) {
	var calls int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		<-r.Context().Done()
	}))
	defer srv.Close()

	model := openai.NewClient(openai.Config{
		APIKey:  "k",
		BaseURL: srv.URL,
		Timeout: 10 * time.Millisecond,
		Retry:   llm.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond},
	}, quietLogger())

	blob := memBlob{"STORE001/u-2/invoice.jpg": []byte{0xFF, 0xD8, 0xFF}}
	uploads := &memUploads{}
	records := &memRecords{}
	p := NewProcessor(blob, uploads, records, extract.NewDispatcher([]llm.Provider{model}, quietLogger()), quietLogger())

	out, err := p.Process(context.Background(), entity.WorkItem{
		UploadID:    "u-2",
		StoreID:     "STORE001",
		StoragePath: "STORE001/u-2/invoice.jpg",
		FileType:    "invoice_image",
	})
	if !common.IsKind(err, common.KindTransientNetworkFailure) {
		t.Fatalf("err = %v", err)
	}
	if out.Status != constants.UploadStatusFailed || out.ErrorKind != common.KindTransientNetworkFailure {
		t.Fatalf("outcome = %+v", out)
	}
	want := []constants.UploadStatus{constants.UploadStatusProcessing, constants.UploadStatusFailed}
	if diff := cmp.Diff(want, uploads.history); diff != "" {
		t.Fatalf("status history (-want +got):\n%s", diff)
	}
	if uploads.lastMsg == "" {
		t.Fatal("FAILED without an error message")
	}
	if len(records.recs) != 0 {
		t.Fatalf("record persisted on failure: %+v", records.recs)
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != 3 {
		t.Fatalf("model calls = %d, want 3", calls)
	}
}

func TestProcess_MalformedItemTouchesNothing(t *testing.T) {
	uploads := &memUploads{}
	records := &memRecords{}
	ex := &countingExtractor{}
	p := NewProcessor(memBlob{}, uploads, records, ex, quietLogger())

	items := map[string]entity.WorkItem{
		"no upload id":   {StoreID: "s", StoragePath: "a/b.csv", FileType: "sales_csv"},
		"no store":       {UploadID: "u", StoragePath: "a/b.csv", FileType: "sales_csv"},
		"no path":        {UploadID: "u", StoreID: "s", FileType: "sales_csv"},
		"blank type":     {UploadID: "u", StoreID: "s", StoragePath: "a/b.csv", FileType: "  "},
		"path traversal": {UploadID: "u", StoreID: "s", StoragePath: "../etc/passwd", FileType: "sales_csv"},
	}
	for name, item := range items {
		t.Run(name, func(t *testing.T) {
			out, err := p.Process(context.Background(), item)
			if common.KindOf(err) != common.KindMalformedWorkItem {
				t.Fatalf("err = %v", err)
			}
			if out.Status != constants.UploadStatusFailed {
				t.Fatalf("status = %s", out.Status)
			}
		})
	}
	if len(uploads.history) != 0 || len(records.recs) != 0 || ex.calls != 0 {
		t.Fatalf("side effects: statuses=%v records=%d calls=%d", uploads.history, len(records.recs), ex.calls)
	}
}

func TestProcess_ProcessingWriteFailureStopsItem(t *testing.T) {
	uploads := &memUploads{failOn: constants.UploadStatusProcessing}
	ex := &countingExtractor{}
	p := NewProcessor(memBlob{"k.csv": []byte("a,b\n")}, uploads, &memRecords{}, ex, quietLogger())

	out, err := p.Process(context.Background(), entity.WorkItem{
		UploadID: "u", StoreID: "s", StoragePath: "k.csv", FileType: "sales_csv",
	})
	if common.KindOf(err) != common.KindPersistenceError {
		t.Fatalf("err = %v", err)
	}
	if out.Status != constants.UploadStatusFailed || ex.calls != 0 {
		t.Fatalf("outcome = %+v calls = %d", out, ex.calls)
	}
	if diff := cmp.Diff([]constants.UploadStatus{constants.UploadStatusFailed}, uploads.history); diff != "" {
		t.Fatalf("status history (-want +got):\n%s", diff)
	}
}

func TestProcess_MissingObjectAndUnsupportedType(t *testing.T) {
	cases := []struct {
		name     string
		item     entity.WorkItem
		wantKind common.ErrorKind
	}{
		{
			name:     "missing object",
			item:     entity.WorkItem{UploadID: "u", StoreID: "s", StoragePath: "nope.csv", FileType: "sales_csv"},
			wantKind: common.KindStorageError,
		},
		{
			name:     "unsupported type",
			item:     entity.WorkItem{UploadID: "u", StoreID: "s", StoragePath: "k.bin", FileType: "spreadsheet_xyz"},
			wantKind: common.KindUnsupportedFileType,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uploads := &memUploads{}
			records := &memRecords{}
			p := NewProcessor(memBlob{"k.bin": []byte("x")}, uploads, records, extract.NewDispatcher(nil, quietLogger()), quietLogger())
			out, err := p.Process(context.Background(), tc.item)
			if common.KindOf(err) != tc.wantKind || out.ErrorKind != tc.wantKind {
				t.Fatalf("err = %v, outcome = %+v", err, out)
			}
			if uploads.history[len(uploads.history)-1] != constants.UploadStatusFailed || len(records.recs) != 0 {
				t.Fatalf("history = %v records = %d", uploads.history, len(records.recs))
			}
		})
	}
}

func TestProcess_FailedStatusWriteIsSwallowed(t *testing.T) {
	uploads := &memUploads{failOn: constants.UploadStatusFailed}
	p := NewProcessor(memBlob{}, uploads, &memRecords{}, extract.NewDispatcher(nil, quietLogger()), quietLogger())
	_, err := p.Process(context.Background(), entity.WorkItem{
		UploadID: "u", StoreID: "s", StoragePath: "missing.csv", FileType: "sales_csv",
	})
	// the original storage error surfaces, not the status write failure
	if common.KindOf(err) != common.KindStorageError {
		t.Fatalf("err = %v", err)
	}
}

func TestProcess_ExtractedWriteFailureRemovesRecord(t *testing.T) {
	csv := "Date,Product,Qty,Price\n2024-01-01,Rice,2,10\n"
	uploads := &memUploads{failOn: constants.UploadStatusExtracted}
	records := &memRecords{}
	p := NewProcessor(memBlob{"s/u/sales.csv": []byte(csv)}, uploads, records, extract.NewDispatcher(nil, quietLogger()), quietLogger())

	out, err := p.Process(context.Background(), entity.WorkItem{
		UploadID: "u", StoreID: "s", StoragePath: "s/u/sales.csv", FileType: "sales_csv",
	})
	if common.KindOf(err) != common.KindPersistenceError || out.Status != constants.UploadStatusFailed {
		t.Fatalf("err = %v, outcome = %+v", err, out)
	}
	want := []constants.UploadStatus{constants.UploadStatusProcessing, constants.UploadStatusFailed}
	if diff := cmp.Diff(want, uploads.history); diff != "" {
		t.Fatalf("status history (-want +got):\n%s", diff)
	}
	if len(records.recs) != 0 {
		t.Fatalf("FAILED item left %d records behind", len(records.recs))
	}
}
