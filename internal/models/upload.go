package models

import "encoding/json"

// Row is a single parsed spreadsheet row, keyed by column name.
type Row map[string]any

// ColumnMeta describes a parsed column as reported by the backend analyzer.
type ColumnMeta struct {
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Nullable bool   `json:"nullable,omitempty"`
}

// UploadResult is the backend's response to a CSV upload. The backend has
// shipped two generations of field names (columns vs column_names, products
// vs data_preview), so decoding accepts either and prefers the first present.
type UploadResult struct {
	Status          string       `json:"status,omitempty"`
	FileName        string       `json:"file_name"`
	TotalRows       int          `json:"total_rows"`
	TotalColumns    int          `json:"total_columns"`
	Columns         []string     `json:"columns"`
	ColumnsMetadata []ColumnMeta `json:"columns_metadata,omitempty"`
	Rows            []Row        `json:"products"`
}

func (u *UploadResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Status          string            `json:"status"`
		FileName        string            `json:"file_name"`
		TotalRows       int               `json:"total_rows"`
		TotalColumns    int               `json:"total_columns"`
		Columns         []json.RawMessage `json:"columns"`
		ColumnNames     []string          `json:"column_names"`
		ColumnsMetadata []ColumnMeta      `json:"columns_metadata"`
		Products        []Row             `json:"products"`
		DataPreview     []Row             `json:"data_preview"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	u.Status = raw.Status
	u.FileName = raw.FileName
	u.TotalRows = raw.TotalRows
	u.TotalColumns = raw.TotalColumns
	u.ColumnsMetadata = raw.ColumnsMetadata

	// "columns" entries are plain strings in current backends, but older
	// responses embed the metadata objects directly.
	u.Columns = nil
	for _, c := range raw.Columns {
		var name string
		if err := json.Unmarshal(c, &name); err == nil {
			u.Columns = append(u.Columns, name)
			continue
		}
		var meta ColumnMeta
		if err := json.Unmarshal(c, &meta); err == nil && meta.Name != "" {
			u.Columns = append(u.Columns, meta.Name)
		}
	}
	if len(u.Columns) == 0 {
		u.Columns = raw.ColumnNames
	}

	u.Rows = raw.Products
	if len(u.Rows) == 0 {
		u.Rows = raw.DataPreview
	}
	return nil
}
