// Shared test server setup utilities, which simplify all API tests.

package testutil

import (
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/vrsandeep/filebox/internal/api"
	"github.com/vrsandeep/filebox/internal/auth"
	"github.com/vrsandeep/filebox/internal/config"
	"github.com/vrsandeep/filebox/internal/core"
)

// SetupTestApp builds a core.App over an in-memory database and a
// temporary upload root.
func SetupTestApp(t *testing.T) *core.App {
	t.Helper()
	database := SetupTestDB(t)

	// Hashing at full cost makes lock tests slow.
	auth.Cost = bcrypt.MinCost

	cfg := &config.Config{}
	cfg.Upload.Path = t.TempDir()
	cfg.Upload.MaxMemoryMB = 8
	cfg.Extraction.MaxConcurrent = 2

	app, err := core.NewApp(cfg, database)
	if err != nil {
		t.Fatalf("Failed to create test app: %v", err)
	}
	t.Cleanup(app.Close)
	return app
}

// SetupTestServer initializes a full core.App and api.Server for integration
// testing. It returns the server and the upload root.
func SetupTestServer(t *testing.T) (*api.Server, string) {
	t.Helper()
	app := SetupTestApp(t)
	return api.NewServer(app), app.Config().Upload.Path
}
