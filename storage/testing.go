package storage

import (
	"database/sql"
	"fmt"

	"github.com/kaymio/productcast/storage/db"
	_ "github.com/mattn/go-sqlite3"
)

// NewTestDB creates a migrated in-memory SQLite database for tests.
func NewTestDB() (*sql.DB, *db.Queries, func(), error) {
	database, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open test database: %w", err)
	}
	// each pooled connection would get its own empty :memory: database
	database.SetMaxOpenConns(1)

	if err := migrate(database); err != nil {
		database.Close()
		return nil, nil, nil, err
	}

	cleanup := func() {
		database.Close()
	}
	return database, db.New(database), cleanup, nil
}
