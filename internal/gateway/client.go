// Package gateway wraps the HTTP API of the external content backend.
// Every operation performs a single attempt and surfaces failures to the
// caller; retries, if any, are the caller's decision.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ngocvu/shopdash/internal/config"
	"github.com/ngocvu/shopdash/internal/models"
)

// Client is the typed backend client. It holds the configuration it was
// constructed with; configuration is never read ad hoc mid-call.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
}

// New creates a backend client. The HTTP client timeout is generous because
// an upload analysis of a large CSV can take a while on the backend side.
func New(cfg *config.Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (c *Client) baseURL() (string, error) {
	if c.cfg.Backend.BaseURL == "" {
		return "", errMissingBaseURL()
	}
	return c.cfg.Backend.BaseURL, nil
}

// decodeError turns a non-2xx response into a BackendError, pulling the
// backend's JSON {"detail": ...} message when the body has one.
func decodeError(resp *http.Response) error {
	detail := resp.Status
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err == nil {
		var payload struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(body, &payload) == nil && payload.Detail != "" {
			detail = payload.Detail
		}
	}
	return &BackendError{StatusCode: resp.StatusCode, Detail: detail}
}

// FetchGeneratedContent retrieves the backend's generated content payload.
// The shape is backend-defined, so it is returned as raw JSON.
func (c *Client) FetchGeneratedContent(ctx context.Context) (json.RawMessage, error) {
	base, err := c.baseURL()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/content", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "fetch generated content", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &BackendError{StatusCode: resp.StatusCode, Detail: resp.Status}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: "read content response", Err: err}
	}
	return json.RawMessage(raw), nil
}

// UploadCSV sends the file to the backend analyzer under the multipart field
// name "file" and decodes the analysis result.
func (c *Client) UploadCSV(ctx context.Context, filename string, file io.Reader) (*models.UploadResult, error) {
	base, err := c.baseURL()
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("buffering upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "upload CSV", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp)
	}

	var result models.UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding upload response: %w", err)
	}
	return &result, nil
}

// PushToShopify asks the backend to push the previously uploaded products to
// the store. Credentials come from configuration; each missing one fails with
// its own ConfigError before any network call is made.
func (c *Client) PushToShopify(ctx context.Context) (*models.PushResult, error) {
	base, err := c.baseURL()
	if err != nil {
		return nil, err
	}
	if c.cfg.Shopify.ShopURL == "" {
		return nil, errMissingShopURL()
	}
	if c.cfg.Shopify.AccessToken == "" {
		return nil, errMissingAccessToken()
	}

	payload, err := json.Marshal(map[string]string{
		"shop_url":     c.cfg.Shopify.ShopURL,
		"access_token": c.cfg.Shopify.AccessToken,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/push-to-shopify", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "push to Shopify", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp)
	}

	var result models.PushResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding push response: %w", err)
	}
	return &result, nil
}

// PriceSyncLogs fetches one page of the backend's price-sync history.
// status filters rows when non-empty and not "ALL".
func (c *Client) PriceSyncLogs(ctx context.Context, limit, offset int, status string) (*models.PriceSyncLogPage, error) {
	base, err := c.baseURL()
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	if status != "" {
		params.Set("status", status)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/price-sync/logs?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "fetch price-sync logs", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp)
	}

	var page models.PriceSyncLogPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding price-sync logs: %w", err)
	}
	return &page, nil
}

// LogStreamURL is the SSE endpoint the stream consumer connects to.
func (c *Client) LogStreamURL() (string, error) {
	base, err := c.baseURL()
	if err != nil {
		return "", err
	}
	return base + "/logs", nil
}
