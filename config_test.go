package mdmigrate_test

import (
	"errors"
	"testing"

	"github.com/goliatone/go-mdmigrate"
)

func TestConfigValidateRequiresDSN(t *testing.T) {
	cfg := mdmigrate.DefaultConfig()
	cfg.Database.DSN = ""
	if err := cfg.Validate(); !errors.Is(err, mdmigrate.ErrDatabaseDSNRequired) {
		t.Fatalf("expected ErrDatabaseDSNRequired, got %v", err)
	}
}

func TestConfigValidateLoggingProviderUnknown(t *testing.T) {
	cfg := mdmigrate.DefaultConfig()
	cfg.Logging.Provider = "invalid"
	if err := cfg.Validate(); !errors.Is(err, mdmigrate.ErrLoggingProviderUnknown) {
		t.Fatalf("expected ErrLoggingProviderUnknown, got %v", err)
	}
}
