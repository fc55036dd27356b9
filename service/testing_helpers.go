package service

import (
	"path/filepath"
	"testing"

	"github.com/kaymio/productcast/storage"
	"github.com/labstack/echo/v4"
)

// testConfig points every store at a temp dir and leaves all provider
// credentials empty.
func testConfig(t *testing.T) *Config {
	t.Helper()
	root := t.TempDir()

	config := &Config{
		Environment: "test",
		Port:        "8080",
		BaseURL:     "http://localhost:8080",
	}
	config.Storage.Root = filepath.Join(root, "media")
	config.Storage.StateFile = filepath.Join(root, "state", "app_state.json")
	config.Upload.MaxSize = 1 << 20
	config.Pinterest.TokenFile = filepath.Join(root, "tokens", "pinterest_token.txt")
	config.Instagram.TokenFile = filepath.Join(root, "tokens", "instagram_token.json")
	config.Amazon.Country = "US"
	return config
}

// setupTestService creates a service instance with an in-memory database for testing
func setupTestService(t *testing.T) *Service {
	t.Helper()

	_, queries, cleanup, err := storage.NewTestDB()
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(cleanup)

	// The DB field is private; the queries are all the service needs
	store := &storage.Storage{
		Queries: queries,
	}

	svc, err := New(store, testConfig(t))
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc
}

// setupTestEcho creates an Echo instance with routes registered
func setupTestEcho(t *testing.T) (*echo.Echo, *Service) {
	t.Helper()

	e := echo.New()
	// Disable Echo's default error handler for cleaner test output
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		// Just set status code, don't write response
		if he, ok := err.(*echo.HTTPError); ok {
			c.Response().WriteHeader(he.Code)
		} else {
			c.Response().WriteHeader(500)
		}
	}

	svc := setupTestService(t)
	svc.RegisterRoutes(e)

	return e, svc
}
