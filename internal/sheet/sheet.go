// Package sheet normalizes spreadsheet uploads. The backend analyzer only
// accepts CSV, so Excel workbooks are converted (first sheet) before being
// forwarded.
package sheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// IsExcel reports whether the filename looks like an Excel workbook.
func IsExcel(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".xlsx") || strings.HasSuffix(name, ".xlsm")
}

// ToCSV reads the first sheet of an Excel workbook and renders it as CSV.
// Ragged rows are padded to the header width so every record has the same
// number of fields.
func ToCSV(file io.Reader) (io.Reader, error) {
	workbook, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	width := len(rows[0])
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	for _, row := range rows {
		record := make([]string, width)
		copy(record, row)
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return &buf, nil
}

// NormalizeUpload converts an Excel upload to CSV and renames it; CSV files
// pass through untouched.
func NormalizeUpload(filename string, file io.Reader) (string, io.Reader, error) {
	if !IsExcel(filename) {
		return filename, file, nil
	}
	converted, err := ToCSV(file)
	if err != nil {
		return "", nil, err
	}
	dot := strings.LastIndex(filename, ".")
	return filename[:dot] + ".csv", converted, nil
}
