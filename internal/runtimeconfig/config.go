package runtimeconfig

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDatabaseDriverRequired indicates the database section names no driver.
var ErrDatabaseDriverRequired = errors.New("mdmigrate config: database driver is required")

// ErrDatabaseDriverUnknown indicates a driver without a bun dialect binding.
var ErrDatabaseDriverUnknown = errors.New("mdmigrate config: database driver is invalid")

// ErrDatabaseDSNRequired indicates an empty connection string.
var ErrDatabaseDSNRequired = errors.New("mdmigrate config: database dsn is required")
var ErrDatabaseMaxOpenConnsInvalid = errors.New("mdmigrate config: database max open connections must be zero or one")
var ErrVersionTableInvalid = errors.New("mdmigrate config: migrations version table is invalid")
var ErrLoggingProviderRequired = errors.New("mdmigrate config: logging provider is required")
var ErrLoggingProviderUnknown = errors.New("mdmigrate config: logging provider is invalid")
var ErrLoggingLevelInvalid = errors.New("mdmigrate config: logging level is invalid")
var ErrLoggingFormatInvalid = errors.New("mdmigrate config: logging format is invalid")

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config aggregates the settings of a migration run.
type Config struct {
	Database   DatabaseConfig
	Migrations MigrationsConfig
	Logging    LoggingConfig
}

// DatabaseConfig selects the driver and connection. The engine assumes a
// single connection.
type DatabaseConfig struct {
	Driver       string
	DSN          string
	MaxOpenConns int
}

// MigrationsConfig captures driver defaults.
type MigrationsConfig struct {
	// Target is the revision `upgrade` goes to when none is given.
	Target       string
	VersionTable string
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string
	Level     string
	Format    string
	AddSource bool
	Focus     []string
}

// DefaultConfig returns an in-memory SQLite setup logging to the console.
func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{
			Driver:       DriverSQLite,
			DSN:          "file:grc?mode=memory&cache=shared",
			MaxOpenConns: 1,
		},
		Migrations: MigrationsConfig{
			Target:       "head",
			VersionTable: "migration_version",
		},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
			Format:   "",
		},
	}
}

// Validate performs high-level consistency checks.
func (cfg Config) Validate() error {
	driver := NormalizeDriver(cfg.Database.Driver)
	if driver == "" {
		return ErrDatabaseDriverRequired
	}
	if !isSupportedDriver(driver) {
		return fmt.Errorf("%w: %s", ErrDatabaseDriverUnknown, cfg.Database.Driver)
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return ErrDatabaseDSNRequired
	}
	if cfg.Database.MaxOpenConns < 0 || cfg.Database.MaxOpenConns > 1 {
		return fmt.Errorf("%w: %d", ErrDatabaseMaxOpenConnsInvalid, cfg.Database.MaxOpenConns)
	}
	if table := strings.TrimSpace(cfg.Migrations.VersionTable); table != "" && !isIdentifier(table) {
		return fmt.Errorf("%w: %s", ErrVersionTableInvalid, table)
	}

	provider := normalizeProvider(cfg.Logging.Provider)
	if provider == "" {
		return ErrLoggingProviderRequired
	}
	if !isSupportedProvider(provider) {
		return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
	}
	if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
		return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
	}
	if provider == "gologger" {
		if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
			return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
		}
	}
	return nil
}

// NormalizeDriver folds driver aliases onto the canonical names.
func NormalizeDriver(driver string) string {
	switch name := strings.ToLower(strings.TrimSpace(driver)); name {
	case "sqlite":
		return DriverSQLite
	case "pg", "postgresql":
		return DriverPostgres
	default:
		return name
	}
}

func isSupportedDriver(driver string) bool {
	switch driver {
	case DriverSQLite, DriverPostgres, DriverMySQL:
		return true
	default:
		return false
	}
}

func isIdentifier(name string) bool {
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func normalizeProvider(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "console", "gologger":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
