package di

import (
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/goliatone/go-mdmigrate/internal/runtimeconfig"
	"github.com/goliatone/go-mdmigrate/internal/sqlops"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// OpenDB opens the configured database behind the matching bun dialect.
// The pool is capped at one connection.
func OpenDB(cfg runtimeconfig.DatabaseConfig) (*bun.DB, error) {
	var (
		sqlDB *sql.DB
		db    *bun.DB
		err   error
	)
	switch driver := runtimeconfig.NormalizeDriver(cfg.Driver); driver {
	case runtimeconfig.DriverSQLite:
		if sqlDB, err = sql.Open(sqlops.RegisterSQLite(), cfg.DSN); err != nil {
			return nil, err
		}
		db = bun.NewDB(sqlDB, sqlitedialect.New())
	case runtimeconfig.DriverPostgres:
		if sqlDB, err = sql.Open("postgres", cfg.DSN); err != nil {
			return nil, err
		}
		db = bun.NewDB(sqlDB, pgdialect.New())
	case runtimeconfig.DriverMySQL:
		dsn, err := mysqlDSN(cfg.DSN)
		if err != nil {
			return nil, err
		}
		if sqlDB, err = sql.Open("mysql", dsn); err != nil {
			return nil, err
		}
		db = bun.NewDB(sqlDB, mysqldialect.New())
	default:
		return nil, fmt.Errorf("%w: %s", runtimeconfig.ErrDatabaseDriverUnknown, cfg.Driver)
	}

	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// mysqlDSN forces time parsing so DATETIME columns scan into time.Time.
func mysqlDSN(dsn string) (string, error) {
	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	parsed.ParseTime = true
	return parsed.FormatDSN(), nil
}
