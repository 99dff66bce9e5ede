package gateway

import "fmt"

// ConfigError reports a required configuration value that is unset. Each
// missing credential gets its own message so operators can tell which one to
// fix.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

func errMissingBaseURL() error {
	return &ConfigError{"backend base URL is not configured; set SHOPDASH_BACKEND_BASE_URL (or BACKEND_BASE_URL)"}
}

func errMissingShopURL() error {
	return &ConfigError{"Shopify shop URL is not configured; set SHOPIFY_STORE_URL (or SHOP_URL)"}
}

func errMissingAccessToken() error {
	return &ConfigError{"Shopify access token is not configured; set SHOPIFY_ACCESS_TOKEN"}
}

// BackendError reports a non-2xx response from the backend. Detail carries
// the JSON "detail" field when the body had one, otherwise the HTTP status
// text.
type BackendError struct {
	StatusCode int
	Detail     string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
}

// NetworkError reports a transport-level failure before any HTTP status was
// received.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
