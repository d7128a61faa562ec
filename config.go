package mdmigrate

import "github.com/goliatone/go-mdmigrate/internal/runtimeconfig"

var (
	ErrDatabaseDriverRequired      = runtimeconfig.ErrDatabaseDriverRequired
	ErrDatabaseDriverUnknown       = runtimeconfig.ErrDatabaseDriverUnknown
	ErrDatabaseDSNRequired         = runtimeconfig.ErrDatabaseDSNRequired
	ErrDatabaseMaxOpenConnsInvalid = runtimeconfig.ErrDatabaseMaxOpenConnsInvalid
	ErrVersionTableInvalid         = runtimeconfig.ErrVersionTableInvalid
	ErrLoggingProviderRequired     = runtimeconfig.ErrLoggingProviderRequired
	ErrLoggingProviderUnknown      = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid         = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid        = runtimeconfig.ErrLoggingFormatInvalid
)

type (
	Config           = runtimeconfig.Config
	DatabaseConfig   = runtimeconfig.DatabaseConfig
	MigrationsConfig = runtimeconfig.MigrationsConfig
	LoggingConfig    = runtimeconfig.LoggingConfig
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}
