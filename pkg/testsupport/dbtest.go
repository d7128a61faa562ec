package testsupport

import (
	"database/sql"
	"net/url"
	"testing"

	"github.com/goliatone/go-mdmigrate/internal/sqlops"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// NewSQLiteMemoryDB opens a named shared in-memory SQLite database with the
// REGEXP function available. Distinct names give isolated databases.
func NewSQLiteMemoryDB(name string) (*sql.DB, error) {
	driver := sqlops.RegisterSQLite()
	return sql.Open(driver, "file:"+url.PathEscape(name)+"?mode=memory&cache=shared")
}

// NewBunDB returns a single-connection bun handle over a fresh in-memory
// database, closed when tb finishes.
func NewBunDB(tb testing.TB) *bun.DB {
	tb.Helper()
	sqlDB, err := NewSQLiteMemoryDB(tb.Name())
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	db := bun.NewDB(sqlDB, sqlitedialect.New())
	tb.Cleanup(func() { _ = db.Close() })
	return db
}
