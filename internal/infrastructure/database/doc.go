// Package database opens the SQLite file that backs refresh and
// notification history.
//
// Open configures WAL mode, a busy timeout and a single-connection pool,
// and creates the parent directory and file (mode 0600) when missing.
//
// Schema changes are versioned migration files. Packages that own tables
// embed their own files and apply them with Migrate:
//
//	//go:embed migrations/*.sql
//	var migrationFiles embed.FS
//
//	src, _ := fs.Sub(migrationFiles, "migrations")
//	if err := db.Migrate(ctx, src); err != nil {
//	    return err
//	}
//
// Migrations are recorded in schema_migrations and applied once, each in
// its own transaction.
package database
