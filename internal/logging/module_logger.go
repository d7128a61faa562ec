package logging

import (
	"context"
	"strings"

	"github.com/goliatone/go-mdmigrate/pkg/interfaces"
)

const (
	rootModule     = "grc"
	migrateModule  = "grc.migrate"
	richtextModule = "grc.richtext"
	episodesModule = "grc.episodes"
)

const (
	fieldRevision  = "revision"
	fieldDirection = "direction"
	fieldKind      = "kind"
	fieldTable     = "table"
)

// ModuleLogger resolves the named logger from provider and tags it with the
// module name. A nil provider yields a no-op logger.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	module = strings.TrimSpace(module)
	if module == "" {
		module = rootModule
	}

	var logger interfaces.Logger = NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}
	return WithFields(logger, map[string]any{"module": module})
}

// MigrateLogger returns the logger used by the driver.
func MigrateLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, migrateModule)
}

// RichTextLogger returns the logger used by converters and comment movers.
func RichTextLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, richtextModule)
}

// EpisodesLogger returns the logger handed to episode bodies.
func EpisodesLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, episodesModule)
}

// WithEpisode annotates logger with the revision being applied and the direction.
func WithEpisode(logger interfaces.Logger, revision, direction string) interfaces.Logger {
	fields := map[string]any{}
	if trimmed := strings.TrimSpace(revision); trimmed != "" {
		fields[fieldRevision] = trimmed
	}
	if trimmed := strings.TrimSpace(direction); trimmed != "" {
		fields[fieldDirection] = trimmed
	}
	return WithFields(logger, fields)
}

// WithKind annotates logger with an object kind and its table.
func WithKind(logger interfaces.Logger, kind, table string) interfaces.Logger {
	fields := map[string]any{}
	if trimmed := strings.TrimSpace(kind); trimmed != "" {
		fields[fieldKind] = trimmed
	}
	if trimmed := strings.TrimSpace(table); trimmed != "" {
		fields[fieldTable] = trimmed
	}
	return WithFields(logger, fields)
}

// NoOp returns a logger that discards everything.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var (
	_ interfaces.Logger       = noopLogger{}
	_ interfaces.FieldsLogger = noopLogger{}
)

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger { return n }

func (n noopLogger) WithContext(context.Context) interfaces.Logger { return n }
