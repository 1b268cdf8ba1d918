// Package database provides SQLite connectivity for the command journal.
//
// This package manages:
//   - Opening the database with busy-timeout and optional WAL pragmas
//   - Versioned schema migrations read from an fs.FS
//   - Transaction helpers
//
// Migrations are supplied by the caller, normally the embedded
// migrations.FS, so tests can run against their own fixtures.
//
// Usage:
//
//	db, err := database.Open(database.ConfigFrom(cfg.Journal.Database))
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if _, err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
