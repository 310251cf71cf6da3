// Package tabular parses sales and inventory tables without any model call.
package tabular

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/store-extractor/constants"
	"github.com/joseph-ayodele/store-extractor/internal/common"
	"github.com/joseph-ayodele/store-extractor/internal/entity"
)

// Extract parses a delimited (or .xlsx) table according to its declared type.
func Extract(data []byte, fileType constants.FileType, fileName string, logger *slog.Logger) (entity.ExtractionResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("tabular.extract.start", "file_type", fileType, "file_name", fileName, "bytes", len(data))

	t, err := readTable(data, fileName, logger)
	if err != nil {
		return entity.ExtractionResult{}, common.NewAppError(common.KindSchemaMismatch, "unreadable table", err)
	}

	var payload map[string]any
	switch fileType {
	case constants.FileTypeSalesCSV:
		payload, err = extractSales(t, logger)
	case constants.FileTypeInventoryCSV:
		payload = extractInventory(t)
	default:
		payload = passthrough(t)
	}
	if err != nil {
		return entity.ExtractionResult{}, err
	}

	logger.Info("tabular.extract.ok", "file_type", fileType, "records", payload["total_records"], "rows", len(t.rows))
	return entity.ExtractionResult{
		Kind:    constants.DataTypeFor(fileType),
		Payload: payload,
		Method:  constants.MethodTableParse,
	}, nil
}

func extractSales(t table, logger *slog.Logger) (map[string]any, error) {
	headers := normalizeHeaders(t.headers)
	cols, resolved := resolveColumns(headers)
	if resolved < len(requiredFields) {
		return nil, common.Errorf(common.KindSchemaMismatch, "missing required columns, found: %v", headers)
	}

	records := make([]map[string]any, 0, len(t.rows))
	total := decimal.Zero
	for i, row := range t.rows {
		if isBlank(row) {
			continue
		}
		rec, err := salesRecord(row, cols)
		if err != nil {
			// data rows start on line 2
			logger.Warn("tabular.row.skipped", "row", i+2, "error", err)
			continue
		}
		total = total.Add(rec["total_amount"].(decimal.Decimal))
		records = append(records, rec)
	}

	logger.Info("tabular.sales.extracted", "records", len(records), "skipped", len(t.rows)-len(records))
	return map[string]any{
		"records":       records,
		"total_records": len(records),
		"total_amount":  total,
	}, nil
}

func salesRecord(row []string, cols columnMapping) (map[string]any, error) {
	cell := func(field string) string { return strings.TrimSpace(row[cols[field]]) }

	qty, err := decimal.NewFromString(cell(FieldQuantity))
	if err != nil {
		return nil, common.NewAppError(common.KindRowConversion, fmt.Sprintf("quantity %q", cell(FieldQuantity)), err)
	}
	price, err := decimal.NewFromString(cell(FieldPrice))
	if err != nil {
		return nil, common.NewAppError(common.KindRowConversion, fmt.Sprintf("price %q", cell(FieldPrice)), err)
	}

	rec := map[string]any{
		"date":         cell(FieldDate),
		"product_name": cell(FieldProduct),
		"quantity":     qty,
		"unit_price":   price,
		"total_amount": qty.Mul(price),
	}
	if _, ok := cols[FieldCustomer]; ok {
		rec["customer_name"] = cell(FieldCustomer)
	}
	if _, ok := cols[FieldPayment]; ok {
		rec["payment_mode"] = cell(FieldPayment)
	}
	return rec, nil
}

func extractInventory(t table) map[string]any {
	headers := normalizeHeaders(t.headers)
	records := make([]map[string]any, 0, len(t.rows))
	for _, row := range t.rows {
		rec := make(map[string]any, len(headers))
		for i, h := range headers {
			rec[h] = numericOrText(row[i])
		}
		records = append(records, rec)
	}
	return map[string]any{
		"records":       records,
		"total_records": len(records),
	}
}

// numericOrText returns an exact decimal for numeric-looking cells, else the
// trimmed text.
func numericOrText(cell string) any {
	s := strings.TrimSpace(cell)
	if s == "" {
		return s
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d
	}
	return s
}

func passthrough(t table) map[string]any {
	rows := make([]map[string]any, 0, len(t.rows))
	for _, row := range t.rows {
		rec := make(map[string]any, len(t.headers))
		for i, h := range t.headers {
			rec[h] = row[i]
		}
		rows = append(rows, rec)
	}
	columns := t.headers
	if columns == nil {
		columns = []string{}
	}
	return map[string]any{
		"rows":      rows,
		"row_count": len(rows),
		"columns":   columns,
	}
}
