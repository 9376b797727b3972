//go:build !purego

package db

// Built by default (CGO_ENABLED=1). Driver used: github.com/mattn/go-sqlite3.

import (
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDriverName is the database/sql driver registered for SQLite.
const SQLiteDriverName = "sqlite3"
