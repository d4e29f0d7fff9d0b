// Package database manages the SQLite database that stores mission run
// history.
//
// The schema is versioned with embedded SQL migrations (see the migrations
// package at the module root). Each migration runs in its own transaction
// and is recorded in schema_migrations:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if _, err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// The connection pool is limited to one connection; SQLite serialises
// writers anyway and run-history traffic is a handful of rows per match.
package database
