package models

import "encoding/json"

// PushItemResult is the per-product outcome of a push run.
type PushItemResult struct {
	RowIndex  int    `json:"row_index"`
	Status    string `json:"status"` // "success" or "error"
	ProductID string `json:"product_id,omitempty"`
	URL       string `json:"url,omitempty"`
	Title     string `json:"title,omitempty"`
	Message   string `json:"message,omitempty"`
}

// PushResult summarizes a push-to-store run. Like UploadResult, field names
// drifted across backend versions (total vs total_products, shopify_url vs
// url), so decoding accepts both spellings.
type PushResult struct {
	Status        string           `json:"status"` // "success" or "error"
	TotalProducts int              `json:"total_products"`
	SuccessCount  int              `json:"success_count"`
	FailedCount   int              `json:"failed_count"`
	Results       []PushItemResult `json:"results,omitempty"`
}

func (p *PushItemResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		RowIndex   *int   `json:"row_index"`
		Index      *int   `json:"index"`
		Status     string `json:"status"`
		ProductID  string `json:"product_id"`
		URL        string `json:"url"`
		ShopifyURL string `json:"shopify_url"`
		Title      string `json:"title"`
		Message    string `json:"message"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.RowIndex != nil:
		p.RowIndex = *raw.RowIndex
	case raw.Index != nil:
		p.RowIndex = *raw.Index
	}
	p.Status = raw.Status
	p.ProductID = raw.ProductID
	p.URL = raw.URL
	if p.URL == "" {
		p.URL = raw.ShopifyURL
	}
	p.Title = raw.Title
	p.Message = raw.Message
	return nil
}

func (p *PushResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Status        string           `json:"status"`
		Total         *int             `json:"total"`
		TotalProducts *int             `json:"total_products"`
		Success       *int             `json:"success"`
		SuccessCount  *int             `json:"success_count"`
		Failed        *int             `json:"failed"`
		FailedCount   *int             `json:"failed_count"`
		Results       []PushItemResult `json:"results"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Status = raw.Status
	// The backend reports "completed" for a finished batch; normalize it to
	// the success/error pair the dashboard displays.
	if p.Status == "completed" {
		p.Status = "success"
	}
	pick := func(a, b *int) int {
		if a != nil {
			return *a
		}
		if b != nil {
			return *b
		}
		return 0
	}
	p.TotalProducts = pick(raw.TotalProducts, raw.Total)
	p.SuccessCount = pick(raw.SuccessCount, raw.Success)
	p.FailedCount = pick(raw.FailedCount, raw.Failed)
	p.Results = raw.Results
	return nil
}
