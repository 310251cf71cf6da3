package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/joseph-ayodele/store-extractor/constants"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeText returns data as a string, reading it as UTF-8 when valid and as
// Latin-1 otherwise. It never fails on encoding alone.
func DecodeText(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "\uFFFD")
	}
	return string(out)
}

// table is a header row plus data rows padded to the header width.
type table struct {
	headers []string
	rows    [][]string
}

// readTable parses delimited text, or the first sheet of an .xlsx workbook
// when fileName says so.
func readTable(data []byte, fileName string, logger *slog.Logger) (table, error) {
	if constants.NormalizeExt(filepath.Ext(fileName)) == "xlsx" {
		return readWorkbook(data)
	}
	return readCSV(DecodeText(data), logger)
}

func readCSV(text string, logger *slog.Logger) (table, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var t table
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) && t.headers != nil {
				logger.Warn("tabular.csv.bad_line", "line", pe.Line, "error", err)
				continue
			}
			return table{}, fmt.Errorf("read csv: %w", err)
		}
		if t.headers == nil {
			t.headers = rec
			continue
		}
		t.rows = append(t.rows, rec)
	}
	t.pad()
	return t, nil
}

func readWorkbook(data []byte) (table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return table{}, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return table{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return table{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	var t table
	for _, row := range rows {
		if t.headers == nil {
			if isBlank(row) {
				continue
			}
			t.headers = row
			continue
		}
		t.rows = append(t.rows, row)
	}
	t.pad()
	return t, nil
}

// pad extends short rows with empty cells so every row indexes like headers.
func (t *table) pad() {
	for i, row := range t.rows {
		if len(row) < len(t.headers) {
			padded := make([]string, len(t.headers))
			copy(padded, row)
			t.rows[i] = padded
		}
	}
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
