// Package database provides SQLite connectivity for Gray Logic Dispatch.
//
// It opens the database with WAL mode and a busy timeout, and applies
// versioned migrations from an fs.FS (normally the embedded
// migrations package). The only persisted data today is the program
// execution log; the device registry itself is in-memory.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql.
package database
