// Package postgres persists orders in PostgreSQL through lib/pq.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"orderflow/pkg/order/sqlstore"
)

//go:embed schema.sql
var schema string

const foreignKeyViolation = pq.ErrorCode("23503")

// Dialect is the PostgreSQL flavour of the shared SQL gateway.
var Dialect = sqlstore.Dialect{
	Name:                  "postgres",
	Numbered:              true,
	ForUpdate:             " FOR UPDATE",
	Schema:                schema,
	EncodeTime:            func(t time.Time) any { return t.UTC() },
	IsForeignKeyViolation: isForeignKeyViolation,
}

// New creates a PostgreSQL gateway on an open pool.
func New(db *sql.DB) *sqlstore.Store {
	return sqlstore.New(db, Dialect)
}

// Open connects to dsn, verifies the connection and bootstraps the schema.
func Open(ctx context.Context, dsn string) (*sqlstore.Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := New(db)
	if err := store.Bootstrap(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation
}
