package auth

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the auth schema applied.
// The database file is cleaned up when the test completes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	// Use a temp file so WAL mode works (in-memory doesn't support it)
	f, err := os.CreateTemp("", "auth-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	migrationSQL := `
		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			tier TEXT NOT NULL DEFAULT 'essential',
			subscription_valid_until TEXT,
			last_tool_run_at TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;

		CREATE INDEX idx_users_email ON users(email);

		CREATE TABLE devices (
			id TEXT PRIMARY KEY,
			device_id TEXT NOT NULL UNIQUE,
			device_name TEXT,
			device_type TEXT,
			secret_key TEXT NOT NULL,
			user_id TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1,
			last_used_at TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		) STRICT;

		CREATE INDEX idx_devices_user ON devices(user_id);

		CREATE UNIQUE INDEX idx_devices_active_identity
			ON devices(device_id, user_id) WHERE is_active = 1;
	`
	if _, err := db.Exec(migrationSQL); err != nil {
		t.Fatalf("applying auth migration: %v", err)
	}

	return db
}

// seedTestUser inserts a test user and returns it.
func seedTestUser(t *testing.T, db *sql.DB, username, email string) *User {
	t.Helper()

	repo := NewUserRepository(db)
	user := &User{
		Username: username,
		Email:    email,
		Tier:     TierEssential,
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("creating test user %s: %v", username, err)
	}
	return user
}

// seedTestDevice inserts an active device for a user and returns it.
func seedTestDevice(t *testing.T, db *sql.DB, userID, fingerprint string) *Device {
	t.Helper()

	repo := NewDeviceRepository(db)
	device := &Device{
		Fingerprint: fingerprint,
		Name:        DefaultDeviceName,
		Type:        DefaultDeviceType,
		UserID:      userID,
		IsActive:    true,
	}
	if err := repo.Create(context.Background(), device); err != nil {
		t.Fatalf("creating test device %s: %v", fingerprint, err)
	}
	return device
}
