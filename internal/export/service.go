// Package export renders extracted records as an XLSX workbook.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/store-extractor/constants"
	"github.com/joseph-ayodele/store-extractor/internal/entity"
	"github.com/joseph-ayodele/store-extractor/internal/repository"
)

const (
	recordsSheet = "Records"
	salesSheet   = "Sales"
)

// Service is a tiny façade over the record store that produces XLSX bytes.
type Service struct {
	records repository.ExtractedRecordRepository
	logger  *slog.Logger
}

func NewService(records repository.ExtractedRecordRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{records: records, logger: logger}
}

// ExportRecordsXLSX loads the given records of one store and returns a
// workbook with a summary row per record and one row per sales line.
// Amounts are written as text so they keep their exact decimal form.
func (s *Service) ExportRecordsXLSX(ctx context.Context, storeID string, recordIDs []string) ([]byte, error) {
	start := time.Now()
	recs := make([]entity.ExtractedRecord, 0, len(recordIDs))
	for _, id := range recordIDs {
		rec, err := s.records.GetRecord(ctx, storeID, id)
		if err != nil {
			return nil, fmt.Errorf("load record %s: %w", id, err)
		}
		recs = append(recs, *rec)
	}

	buf, err := Workbook(recs)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok",
		"store_id", storeID,
		"records", len(recs),
		"bytes", len(buf),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf, nil
}

// Workbook renders recs without touching the store.
func Workbook(recs []entity.ExtractedRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", recordsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(salesSheet); err != nil {
		return nil, err
	}

	writeRow(f, recordsSheet, 1, "Record ID", "Type", "Method", "Extracted At", "Records", "Total Amount", "Party")
	writeRow(f, salesSheet, 1, "Record ID", "Date", "Product", "Quantity", "Unit Price", "Total", "Customer", "Payment Mode")

	salesRow := 2
	for i, r := range recs {
		writeRow(f, recordsSheet, i+2,
			r.RecordID,
			string(r.Type),
			string(r.ExtractionMethod),
			r.ExtractedAt.UTC().Format(time.RFC3339),
			cellText(r.Data["total_records"]),
			cellText(r.Data["total_amount"]),
			truncate(party(r), 80),
		)
		if r.Type != constants.DataTypeSales {
			continue
		}
		for _, line := range asMaps(r.Data["records"]) {
			writeRow(f, salesSheet, salesRow,
				r.RecordID,
				cellText(line["date"]),
				cellText(line["product_name"]),
				cellText(line["quantity"]),
				cellText(line["unit_price"]),
				cellText(line["total_amount"]),
				cellText(line["customer_name"]),
				cellText(line["payment_mode"]),
			)
			salesRow++
		}
	}

	_ = f.SetColWidth(recordsSheet, "A", "A", 36)
	_ = f.SetColWidth(recordsSheet, "D", "D", 22)
	_ = f.SetColWidth(recordsSheet, "G", "G", 40)
	_ = f.SetColWidth(salesSheet, "A", "A", 36)
	_ = f.SetColWidth(salesSheet, "C", "C", 28)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...string) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellStr(sheet, cell, v)
	}
}

// party names the counterparty of a model-extracted document.
func party(r entity.ExtractedRecord) string {
	for _, k := range []string{"supplier_name", "merchant_name", "account_number"} {
		if v := cellText(r.Data[k]); v != "" {
			return v
		}
	}
	return ""
}

// asMaps accepts both the in-memory and the decoded-JSON shape of a list.
func asMaps(v any) []map[string]any {
	switch t := v.(type) {
	case []map[string]any:
		return t
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, e := range t {
			if m, ok := e.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case decimal.Decimal:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprint(t)
	}
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
