package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/redquill/redquill-core/internal/audit"
	"github.com/redquill/redquill-core/internal/auth"
	"github.com/redquill/redquill-core/internal/infrastructure/config"
	"github.com/redquill/redquill-core/internal/infrastructure/database"
	"github.com/redquill/redquill-core/internal/infrastructure/logging"
	_ "github.com/redquill/redquill-core/migrations"
)

// testServer creates a fully wired server over a temporary database with
// the real migrations applied.
func testServer(t *testing.T) (*Server, *database.DB) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "api-test.db")
	db, err := database.Open(context.Background(), database.Config{
		Path:        dbPath,
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	cfg := &config.Config{
		Auth: config.AuthConfig{
			TokenTTLDays:      7,
			DefaultDeviceName: auth.DefaultDeviceName,
			DefaultDeviceType: auth.DefaultDeviceType,
		},
	}

	users := auth.NewUserRepository(db)
	devices := auth.NewDeviceRepository(db)

	srv, err := New(Deps{
		Config:      cfg,
		Logger:      logging.Default(),
		DB:          db,
		Users:       users,
		Devices:     devices,
		Provisioner: auth.NewProvisioner(users),
		Registry:    auth.NewRegistry(devices, cfg.Auth.DefaultDeviceName, cfg.Auth.DefaultDeviceType),
		Verifier:    auth.NewVerifier(devices, cfg.Auth.LegacySharedSecret),
		AuditRepo:   audit.NewSQLiteRepository(db),
		Version:     "test",
	})
	if err != nil {
		t.Fatalf("creating test server: %v", err)
	}

	return srv, db
}

// doJSON performs a request with an optional JSON body against the router
// and returns the recorder.
func doJSON(t *testing.T, router http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// decodeToken unmarshals a session-minting response and fails on error.
func decodeToken(t *testing.T, w *httptest.ResponseRecorder) tokenResponse {
	t.Helper()

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp tokenResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal token response: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatal("access_token is empty")
	}
	if resp.TokenType != "bearer" {
		t.Fatalf("token_type = %q, want bearer", resp.TokenType)
	}
	return resp
}
