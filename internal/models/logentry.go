package models

// LogEntry is one line from the backend's live log stream. Timestamp is the
// producer's event-loop clock in seconds; display order follows arrival
// order, not this value, since the source clock can skew.
type LogEntry struct {
	Message   string  `json:"message"`
	Level     string  `json:"level"`
	Timestamp float64 `json:"timestamp"`
}

// PriceSyncLog is one row of the backend's persisted price-sync history.
type PriceSyncLog struct {
	ID           int64   `json:"id,omitempty"`
	Timestamp    string  `json:"timestamp,omitempty"`
	Status       string  `json:"status,omitempty"`
	ProductTitle string  `json:"product_title,omitempty"`
	OldPrice     float64 `json:"old_price,omitempty"`
	NewPrice     float64 `json:"new_price,omitempty"`
	Message      string  `json:"message,omitempty"`
}

// PriceSyncLogPage is the paginated response of GET /price-sync/logs.
type PriceSyncLogPage struct {
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
	Logs   []PriceSyncLog `json:"logs"`
}
