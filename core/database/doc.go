// Package database handles database connections and schema inspection.
//
// It provides a wrapper around GORM to configure MySQL or SQLite connections based on the
// application's configuration.
//
// # Connect
//
// Connect opens the configured driver, tunes the connection pool and pings the server
// within the configured timeout. The connection is optional for most commands, so callers
// log the error and carry on.
//
// # Schema Inspection
//
// GetTableColumns lists a table's columns on either dialect. MissingColumns builds on it
// so sources can refuse to run against a table that lacks the columns they read.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	missing, err := database.MissingColumns(db, "overlay_items", "item_key", "payload")
package database
