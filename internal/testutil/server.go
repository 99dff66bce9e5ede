// Shared test setup. API tests run against a real core.App wired to a stub
// backend served by httptest.

package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ngocvu/shopdash/internal/api"
	"github.com/ngocvu/shopdash/internal/config"
	"github.com/ngocvu/shopdash/internal/core"
)

// NewTestConfig returns a configuration pointing at the given backend URL,
// with store credentials filled in and all background polling disabled.
func NewTestConfig(backendURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Backend.BaseURL = backendURL
	cfg.Shopify.ShopURL = "test-store.myshopify.com"
	cfg.Shopify.AccessToken = "shpat_test"
	cfg.Webhook.FileField = "file"
	return cfg
}

// SetupTestApp starts a stub backend with the given handler and wires a full
// core.App around it. Both are torn down with the test.
func SetupTestApp(t *testing.T, backend http.Handler) *core.App {
	t.Helper()

	stub := httptest.NewServer(backend)
	t.Cleanup(stub.Close)

	app := core.NewWithConfig(NewTestConfig(stub.URL), "test")
	t.Cleanup(app.Close)
	return app
}

// SetupTestServer initializes a full core.App and api.Server for integration
// testing against the given stub backend handler.
func SetupTestServer(t *testing.T, backend http.Handler) (*api.Server, *core.App) {
	t.Helper()
	app := SetupTestApp(t, backend)
	return api.NewServer(app), app
}
