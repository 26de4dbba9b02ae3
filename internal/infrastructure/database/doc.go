// Package database provides SQLite connectivity for Redquill Core.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Embedded schema migrations (up/down SQL files)
//   - Request-scoped transactions via WithTx
//   - Connection lifecycle management
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//   - Device signing secrets live in this store and never leave the process
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: "./data/redquill.db"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files follow the YYYYMMDD_HHMMSS_description naming scheme with
// paired .up.sql and .down.sql files, embedded via the migrations package.
package database
