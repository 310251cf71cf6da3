package export

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/store-extractor/constants"
	"github.com/joseph-ayodele/store-extractor/internal/common"
	"github.com/joseph-ayodele/store-extractor/internal/entity"
)

type memRecords map[string]entity.ExtractedRecord

func (m memRecords) PutRecord(_ context.Context, rec entity.ExtractedRecord) error {
	m[rec.RecordID] = rec
	return nil
}

func (m memRecords) DeleteRecord(_ context.Context, _, id string) error {
	delete(m, id)
	return nil
}

func (m memRecords) GetRecord(_ context.Context, _, id string) (*entity.ExtractedRecord, error) {
	rec, ok := m[id]
	if !ok {
		return nil, common.NewAppError(common.KindPersistenceError, "record "+id, common.ErrNotFound)
	}
	return &rec, nil
}

func TestExportRecordsXLSX(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := memRecords{
		"SAL_1": {
			StoreID:  "STORE001",
			RecordID: "SAL_1",
			Type:     constants.DataTypeSales,
			Data: map[string]any{
				"records": []map[string]any{
					{"date": "2024-03-01", "product_name": "Rice", "quantity": decimal.RequireFromString("2"), "unit_price": decimal.RequireFromString("10.50"), "total_amount": decimal.RequireFromString("21.00")},
				},
				"total_records": 1,
				"total_amount":  decimal.RequireFromString("21.00"),
			},
			ExtractedAt:      at,
			ExtractionMethod: constants.MethodTableParse,
		},
		"PUR_1": {
			StoreID:  "STORE001",
			RecordID: "PUR_1",
			Type:     constants.DataTypeInvoice,
			// decoded-JSON shape, as read back from a store
			Data:             map[string]any{"supplier_name": "Acme Traders", "total_amount": "118.00", "items": []any{}},
			ExtractedAt:      at,
			ExtractionMethod: constants.MethodModelCall,
		},
	}

	b, err := NewService(store, nil).ExportRecordsXLSX(context.Background(), "STORE001", []string{"SAL_1", "PUR_1"})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(recordsSheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	// GetRows drops trailing empty cells
	for i := range rows {
		for len(rows[i]) < 7 {
			rows[i] = append(rows[i], "")
		}
	}
	want := [][]string{
		{"Record ID", "Type", "Method", "Extracted At", "Records", "Total Amount", "Party"},
		{"SAL_1", "sales", "table_parse", "2024-03-01T12:00:00Z", "1", "21", ""},
		{"PUR_1", "invoice", "model_call", "2024-03-01T12:00:00Z", "", "118.00", "Acme Traders"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("records sheet (-want +got):\n%s", diff)
	}

	sales, err := f.GetRows(salesSheet)
	if err != nil {
		t.Fatalf("sales rows: %v", err)
	}
	if len(sales) != 2 || sales[1][2] != "Rice" || sales[1][4] != "10.5" {
		t.Fatalf("sales sheet = %v", sales)
	}
}

func TestExportRecordsXLSX_MissingRecord(t *testing.T) {
	_, err := NewService(memRecords{}, nil).ExportRecordsXLSX(context.Background(), "S", []string{"nope"})
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}
