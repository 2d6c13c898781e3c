// Package sqlite persists orders in an embedded SQLite database using the
// pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"orderflow/pkg/order/sqlstore"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

//go:embed schema.sql
var schema string

// Dialect is the SQLite flavour of the shared SQL gateway. SQLite has no
// row locks; the single connection pool serializes transactions instead.
var Dialect = sqlstore.Dialect{
	Name:                  "sqlite",
	Schema:                schema,
	EncodeTime:            func(t time.Time) any { return t.UTC().Format(sqlstore.TimeLayout) },
	IsForeignKeyViolation: isForeignKeyViolation,
}

// Open opens (or creates) the database at path and bootstraps the schema.
// Use ":memory:" for a private in-memory database.
func Open(ctx context.Context, path string) (*sqlstore.Store, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// one connection: the only way an in-memory database is shared, and the
	// writer lock for file databases
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{"PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite %s: %w", p, err)
		}
	}

	store := sqlstore.New(db, Dialect)
	if err := store.Bootstrap(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func isForeignKeyViolation(err error) bool {
	var sqlErr *msqlite.Error
	if !errors.As(err, &sqlErr) {
		return false
	}
	code := sqlErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY ||
		(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqlErr.Error(), "FOREIGN KEY"))
}
