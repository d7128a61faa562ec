package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-mdmigrate"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFileName = "grc-migrate"
	configFileType = "yaml"
	envPrefix      = "GRC_MIGRATE"

	cfgKeyDriver       = "database.driver"
	cfgKeyDSN          = "database.dsn"
	cfgKeyMaxOpenConns = "database.max_open_conns"
	cfgKeyTarget       = "migrations.target"
	cfgKeyVersionTable = "migrations.version_table"
	cfgKeyLogProvider  = "logging.provider"
	cfgKeyLogLevel     = "logging.level"
	cfgKeyLogFormat    = "logging.format"
	cfgKeyLogAddSource = "logging.add_source"
	cfgKeyLogFocus     = "logging.focus"
)

// flagKeys binds persistent flags onto config keys; flags win over the file
// and the environment.
var flagKeys = map[string]string{
	"driver":        cfgKeyDriver,
	"dsn":           cfgKeyDSN,
	"version-table": cfgKeyVersionTable,
	"log-provider":  cfgKeyLogProvider,
	"log-level":     cfgKeyLogLevel,
	"log-format":    cfgKeyLogFormat,
}

// loadConfig layers defaults, grc-migrate.yaml, GRC_MIGRATE_* variables and
// flags. A missing config file is not an error unless configFile names one.
func loadConfig(configFile string, flags *pflag.FlagSet) (mdmigrate.Config, error) {
	defaults := mdmigrate.DefaultConfig()

	v := viper.New()
	v.SetDefault(cfgKeyDriver, defaults.Database.Driver)
	v.SetDefault(cfgKeyDSN, defaults.Database.DSN)
	v.SetDefault(cfgKeyMaxOpenConns, defaults.Database.MaxOpenConns)
	v.SetDefault(cfgKeyTarget, defaults.Migrations.Target)
	v.SetDefault(cfgKeyVersionTable, defaults.Migrations.VersionTable)
	v.SetDefault(cfgKeyLogProvider, defaults.Logging.Provider)
	v.SetDefault(cfgKeyLogLevel, defaults.Logging.Level)
	v.SetDefault(cfgKeyLogFormat, defaults.Logging.Format)
	v.SetDefault(cfgKeyLogAddSource, defaults.Logging.AddSource)
	v.SetDefault(cfgKeyLogFocus, defaults.Logging.Focus)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return mdmigrate.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if flag := flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return mdmigrate.Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := mdmigrate.Config{
		Database: mdmigrate.DatabaseConfig{
			Driver:       v.GetString(cfgKeyDriver),
			DSN:          v.GetString(cfgKeyDSN),
			MaxOpenConns: v.GetInt(cfgKeyMaxOpenConns),
		},
		Migrations: mdmigrate.MigrationsConfig{
			Target:       v.GetString(cfgKeyTarget),
			VersionTable: v.GetString(cfgKeyVersionTable),
		},
		Logging: mdmigrate.LoggingConfig{
			Provider:  v.GetString(cfgKeyLogProvider),
			Level:     v.GetString(cfgKeyLogLevel),
			Format:    v.GetString(cfgKeyLogFormat),
			AddSource: v.GetBool(cfgKeyLogAddSource),
			Focus:     v.GetStringSlice(cfgKeyLogFocus),
		},
	}
	return cfg, cfg.Validate()
}
