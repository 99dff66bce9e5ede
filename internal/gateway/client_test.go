package gateway_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ngocvu/shopdash/internal/config"
	"github.com/ngocvu/shopdash/internal/gateway"
)

func newTestClient(t *testing.T, handler http.Handler) (*gateway.Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{}
	cfg.Backend.BaseURL = server.URL
	cfg.Shopify.ShopURL = "https://test.myshopify.com"
	cfg.Shopify.AccessToken = "shpat_test"
	return gateway.New(cfg), server
}

func TestUploadCSV(t *testing.T) {
	t.Run("Success with current field names", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/upload" {
				t.Errorf("expected path /upload, got %s", r.URL.Path)
			}
			file, header, err := r.FormFile("file")
			if err != nil {
				t.Fatalf("missing multipart field 'file': %v", err)
			}
			defer file.Close()
			if header.Filename != "wine.csv" {
				t.Errorf("expected filename wine.csv, got %s", header.Filename)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"status": "success",
				"file_name": "wine.csv",
				"total_rows": 2,
				"total_columns": 2,
				"columns": ["Name", "Price"],
				"products": [{"Name": "Merlot", "Price": "10"}, {"Name": "Syrah", "Price": "12"}]
			}`))
		}))

		result, err := client.UploadCSV(context.Background(), "wine.csv", strings.NewReader("Name,Price\nMerlot,10\n"))
		assert.NoError(t, err)
		assert.Equal(t, 2, result.TotalRows)
		assert.Equal(t, []string{"Name", "Price"}, result.Columns)
		assert.Len(t, result.Rows, 2)
	})

	t.Run("Accepts legacy field names", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{
				"file_name": "old.csv",
				"total_rows": 1,
				"total_columns": 1,
				"column_names": ["Name"],
				"data_preview": [{"Name": "Pinot"}]
			}`))
		}))

		result, err := client.UploadCSV(context.Background(), "old.csv", strings.NewReader("Name\nPinot\n"))
		assert.NoError(t, err)
		assert.Equal(t, []string{"Name"}, result.Columns)
		assert.Len(t, result.Rows, 1)
	})

	t.Run("Extracts detail from error body", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"detail": "Only CSV files are supported"}`))
		}))

		_, err := client.UploadCSV(context.Background(), "wine.pdf", strings.NewReader("x"))
		var backendErr *gateway.BackendError
		if !errors.As(err, &backendErr) {
			t.Fatalf("expected BackendError, got %v", err)
		}
		assert.Equal(t, http.StatusBadRequest, backendErr.StatusCode)
		assert.Equal(t, "Only CSV files are supported", backendErr.Detail)
	})

	t.Run("Falls back to status text on unparsable error body", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("<html>bad gateway</html>"))
		}))

		_, err := client.UploadCSV(context.Background(), "wine.csv", strings.NewReader("x"))
		var backendErr *gateway.BackendError
		if !errors.As(err, &backendErr) {
			t.Fatalf("expected BackendError, got %v", err)
		}
		assert.Contains(t, backendErr.Detail, "502")
	})
}

func TestPushToShopify(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/push-to-shopify" {
				t.Errorf("expected path /push-to-shopify, got %s", r.URL.Path)
			}
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected JSON content type, got %s", ct)
			}
			w.Write([]byte(`{
				"status": "completed",
				"total": 3,
				"success": 2,
				"failed": 1,
				"results": [
					{"status": "success", "product_id": "1", "shopify_url": "https://x/1", "title": "Merlot"},
					{"status": "success", "product_id": "2", "title": "Syrah"},
					{"status": "error", "message": "variant rejected"}
				]
			}`))
		}))

		result, err := client.PushToShopify(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, "success", result.Status)
		assert.Equal(t, 3, result.TotalProducts)
		assert.Equal(t, 2, result.SuccessCount)
		assert.Equal(t, 1, result.FailedCount)
		assert.Equal(t, "https://x/1", result.Results[0].URL)
	})

	t.Run("Missing shop URL fails before any network call", func(t *testing.T) {
		called := false
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		defer server.Close()

		cfg := &config.Config{}
		cfg.Backend.BaseURL = server.URL
		cfg.Shopify.AccessToken = "shpat_test"
		client := gateway.New(cfg)

		_, err := client.PushToShopify(context.Background())
		var cfgErr *gateway.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("expected ConfigError, got %v", err)
		}
		assert.Contains(t, err.Error(), "SHOPIFY_STORE_URL")
		assert.False(t, called, "no request should reach the backend")
	})

	t.Run("Missing access token is a distinct error", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Backend.BaseURL = "http://localhost:1"
		cfg.Shopify.ShopURL = "https://test.myshopify.com"
		client := gateway.New(cfg)

		_, err := client.PushToShopify(context.Background())
		assert.ErrorContains(t, err, "SHOPIFY_ACCESS_TOKEN")
	})
}

func TestFetchGeneratedContent(t *testing.T) {
	t.Run("Missing base URL", func(t *testing.T) {
		client := gateway.New(&config.Config{})
		_, err := client.FetchGeneratedContent(context.Background())
		var cfgErr *gateway.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("expected ConfigError, got %v", err)
		}
		assert.Contains(t, err.Error(), "BACKEND_BASE_URL")
	})

	t.Run("Success returns raw JSON", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/content" {
				t.Errorf("expected path /api/content, got %s", r.URL.Path)
			}
			w.Write([]byte(`{"status": "ok", "message": "Connected!"}`))
		}))
		raw, err := client.FetchGeneratedContent(context.Background())
		assert.NoError(t, err)
		assert.Contains(t, string(raw), "Connected!")
	})
}

func TestPriceSyncLogs(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/price-sync/logs" {
			t.Errorf("expected path /price-sync/logs, got %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("limit") != "25" || q.Get("offset") != "50" || q.Get("status") != "SUCCESS" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"total": 120, "limit": 25, "offset": 50, "logs": [{"status": "SUCCESS", "product_title": "Merlot"}]}`))
	}))

	page, err := client.PriceSyncLogs(context.Background(), 25, 50, "SUCCESS")
	assert.NoError(t, err)
	assert.Equal(t, 120, page.Total)
	assert.Len(t, page.Logs, 1)
	assert.Equal(t, "Merlot", page.Logs[0].ProductTitle)
}
