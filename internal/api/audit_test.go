package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/redquill/redquill-core/internal/audit"
)

// TestAuditTrailEndpoint verifies the protected trail listing.
func TestAuditTrailEndpoint(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	session := decodeToken(t, doJSON(t, router, http.MethodPost, "/api/auth/auto-login", nil, ""))

	entries := []*audit.Entry{
		{Action: audit.ActionRegister, EntityType: audit.EntityUser, EntityID: "usr-1", UserID: "usr-1"},
		{Action: audit.ActionLogin, EntityType: audit.EntityUser, EntityID: "usr-1", UserID: "usr-1"},
	}
	for _, e := range entries {
		if err := srv.auditRepo.Create(context.Background(), e); err != nil {
			t.Fatalf("seeding audit entry: %v", err)
		}
	}

	t.Run("requires auth", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/audit", nil, "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("filters by action", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/audit?action=login", nil, session.AccessToken)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
		}

		var result audit.ListResult
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("unmarshal trail: %v", err)
		}
		if result.Total != 1 {
			t.Errorf("Total = %d, want 1", result.Total)
		}
		if len(result.Entries) != 1 || result.Entries[0].Action != audit.ActionLogin {
			t.Errorf("unexpected entries: %+v", result.Entries)
		}
	})
}
