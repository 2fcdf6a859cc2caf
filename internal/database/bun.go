package database

import (
	"database/sql"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// Pool sizing for the API's request concurrency.
const (
	maxOpenConns = 25
	maxIdleConns = 5
)

// NewBunDB wraps an open Postgres connection in a bun.DB and applies the
// pool limits.
func NewBunDB(sqlDB *sql.DB) *bun.DB {
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	return bun.NewDB(sqlDB, pgdialect.New())
}
