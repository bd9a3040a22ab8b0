// Package tabular reads spreadsheet uploads into header-keyed rows.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/octane-tech/nfc-tracker/internal/platform/httpx"
)

// Row maps header text to the cell value in that column.
type Row = map[string]string

// Supported reports whether the file name has an extension Parse can read.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}

// Parse reads a .csv or .xlsx file. The first non-empty row is the header;
// every later non-empty row becomes a Row keyed by the trimmed header cells.
func Parse(filename string, r io.Reader) ([]Row, error) {
	var (
		records [][]string
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		records, err = readCSV(r)
	case ".xlsx":
		records, err = readXLSX(r)
	case ".xls", ".ods":
		return nil, fmt.Errorf("%w: unsupported spreadsheet format %s, save as .xlsx or .csv", httpx.ErrValidation, ext)
	default:
		return nil, fmt.Errorf("%w: only Excel (.xlsx) or CSV files are allowed", httpx.ErrValidation)
	}
	if err != nil {
		return nil, err
	}
	return toRows(records), nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("%w: malformed csv: %v", httpx.ErrValidation, err)
		}
		return nil, err
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return records, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable workbook: %v", httpx.ErrValidation, err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func toRows(records [][]string) []Row {
	headerAt := -1
	for i, rec := range records {
		if !blank(rec) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil
	}
	header := make([]string, len(records[headerAt]))
	for i, cell := range records[headerAt] {
		header[i] = strings.TrimSpace(cell)
	}

	rows := make([]Row, 0, len(records)-headerAt-1)
	for _, rec := range records[headerAt+1:] {
		if blank(rec) {
			continue
		}
		row := make(Row, len(header))
		for i, key := range header {
			if key == "" {
				continue
			}
			if i < len(rec) {
				row[key] = strings.TrimSpace(rec[i])
			} else {
				row[key] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func blank(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
