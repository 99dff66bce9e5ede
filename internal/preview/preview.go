// Package preview derives the paginated table view over an upload result.
// It is pure computation; rendering lives in the API layer.
package preview

import (
	"fmt"

	"github.com/ngocvu/shopdash/internal/models"
)

// DefaultPageSize is used when the caller does not ask for one.
const DefaultPageSize = 10

// Placeholder rendered for missing cells instead of "undefined"/"null".
const Placeholder = "–"

// Page is one bounded window over the preview rows.
type Page struct {
	Rows      []models.Row `json:"rows"`
	Number    int          `json:"page"`
	PageSize  int          `json:"page_size"`
	PageCount int          `json:"page_count"`
	TotalRows int          `json:"total_rows"`
	HasPrev   bool         `json:"has_prev"`
	HasNext   bool         `json:"has_next"`
	// StartIndex is the 1-based index of the first row on this page, for
	// the "#" column.
	StartIndex int `json:"start_index"`
}

// PageCount returns the number of pages, never less than 1.
func PageCount(totalRows, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	count := (totalRows + pageSize - 1) / pageSize
	if count < 1 {
		count = 1
	}
	return count
}

// Window slices one page out of rows. An out-of-range page is clamped into
// [1, PageCount].
func Window(rows []models.Row, page, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	count := PageCount(len(rows), pageSize)
	if page < 1 {
		page = 1
	}
	if page > count {
		page = count
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(rows) {
		start = len(rows)
	}
	if end > len(rows) {
		end = len(rows)
	}

	return Page{
		Rows:       rows[start:end],
		Number:     page,
		PageSize:   pageSize,
		PageCount:  count,
		TotalRows:  len(rows),
		HasPrev:    page > 1,
		HasNext:    page < count,
		StartIndex: start + 1,
	}
}

// Columns returns the header set for a result. The set is whatever the
// backend supplied; an absent list stays empty rather than being derived
// from row keys, and the table's "#" index column is rendered regardless.
func Columns(result *models.UploadResult) []string {
	if result == nil {
		return nil
	}
	return result.Columns
}

// Render formats a page's rows as display cells in column order, one string
// slice per row. This is what the table endpoint serves so every client shows
// the same placeholder for a missing value.
func Render(page Page, columns []string) [][]string {
	cells := make([][]string, len(page.Rows))
	for i, row := range page.Rows {
		line := make([]string, len(columns))
		for j, column := range columns {
			line[j] = Cell(row, column)
		}
		cells[i] = line
	}
	return cells
}

// Cell formats one cell value for display. Missing or nil values render as
// the placeholder dash.
func Cell(row models.Row, column string) string {
	value, ok := row[column]
	if !ok || value == nil {
		return Placeholder
	}
	switch v := value.(type) {
	case string:
		if v == "" {
			return Placeholder
		}
		return v
	case float64:
		// JSON numbers decode as float64; print integers without the
		// trailing ".000000".
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
