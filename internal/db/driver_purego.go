//go:build purego

package db

// Pure Go SQLite, no C compiler required:
//
//	CGO_ENABLED=0 go build -tags purego ./...
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

// SQLiteDriverName is the database/sql driver registered for SQLite.
const SQLiteDriverName = "sqlite"
