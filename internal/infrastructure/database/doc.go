// Package database provides the device-local SQLite store.
//
// The agent keeps only small durable state on the device (identity and
// sync cursor), so the package is deliberately thin:
//   - Open with WAL mode and busy timeout pragmas
//   - Versioned up/down migrations read from any fs.FS
//   - A trivial health check for the status endpoint
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS, "."); err != nil {
//	    return err
//	}
//
// Migrations are additive: new columns must be nullable or carry a default.
package database
