package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("REDQUILL_CONFIG")
	defer os.Setenv("REDQUILL_CONFIG", originalEnv)

	os.Setenv("REDQUILL_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies run fails when database path is empty.
func TestRun_MissingDatabasePath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
server:
  host: "127.0.0.1"
  port: 18080
  timeouts:
    read: 30
    write: 30
    idle: 60

database:
  path: ""
  wal_mode: true
  busy_timeout: 5

auth:
  token_ttl_days: 7

logging:
  level: info
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("REDQUILL_CONFIG")
	defer os.Setenv("REDQUILL_CONFIG", originalEnv)
	os.Setenv("REDQUILL_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("REDQUILL_CONFIG")
	defer os.Setenv("REDQUILL_CONFIG", originalEnv)

	os.Unsetenv("REDQUILL_CONFIG")

	path := getConfigPath()
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("REDQUILL_CONFIG")
	defer os.Setenv("REDQUILL_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("REDQUILL_CONFIG", expected)

	path := getConfigPath()
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestRun_StartupAndShutdown tests full startup followed by a clean
// context-cancelled shutdown against a temporary database.
func TestRun_StartupAndShutdown(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")

	configContent := `
server:
  host: "127.0.0.1"
  port: 18099
  timeouts:
    read: 30
    write: 30
    idle: 60

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

auth:
  token_ttl_days: 7
  default_device_name: "Web Browser"
  default_device_type: "web"

logging:
  level: info
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("REDQUILL_CONFIG")
	defer os.Setenv("REDQUILL_CONFIG", originalEnv)
	os.Setenv("REDQUILL_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() returned error: %v", err)
	}

	// The database file should exist after migrations ran.
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}
