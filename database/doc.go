// Package database provides the GORM SQLite handle behind the registry's
// SQL backend: retrying open, WAL journaling, immediate-lock transactions
// retried on lock contention, and a lifecycle component.
//
//	db, err := database.Open(ctx, database.Config{Path: "registry.db"}, log)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
package database
