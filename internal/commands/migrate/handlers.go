package migratecmd

import (
	"context"

	command "github.com/goliatone/go-command"
	"github.com/goliatone/go-mdmigrate/internal/commands"
	"github.com/goliatone/go-mdmigrate/internal/logging"
	"github.com/goliatone/go-mdmigrate/pkg/interfaces"
)

const (
	upgradeOperation   = "migrate.upgrade"
	downgradeOperation = "migrate.downgrade"
	stampOperation     = "migrate.stamp"
)

// Migrator is the driver surface the handlers need. *migrate.Driver satisfies it.
type Migrator interface {
	Upgrade(ctx context.Context, target string) ([]string, error)
	Downgrade(ctx context.Context, target string) ([]string, error)
	Stamp(ctx context.Context, revision string) error
}

// Reporter receives the revisions a command applied or reverted.
type Reporter func(operation string, revisions []string)

var (
	_ command.Commander[UpgradeCommand]   = (*UpgradeHandler)(nil)
	_ command.Commander[DowngradeCommand] = (*DowngradeHandler)(nil)
	_ command.Commander[StampCommand]     = (*StampHandler)(nil)
)

// UpgradeHandler runs the driver upgrade through the shared command handler.
type UpgradeHandler struct {
	inner *commands.Handler[UpgradeCommand]
}

// NewUpgradeHandler creates a handler bound to migrator.
func NewUpgradeHandler(migrator Migrator, logger interfaces.Logger, report Reporter, opts ...commands.HandlerOption[UpgradeCommand]) *UpgradeHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg UpgradeCommand) error {
		applied, err := migrator.Upgrade(ctx, msg.Target)
		emit(report, upgradeOperation, applied)
		if err != nil {
			return err
		}
		logging.WithFields(baseLogger, map[string]any{
			"applied_count": len(applied),
		}).Info("migrate.command.upgrade.completed")
		return nil
	}

	handlerOpts := []commands.HandlerOption[UpgradeCommand]{
		commands.WithLogger[UpgradeCommand](baseLogger),
		commands.WithOperation[UpgradeCommand](upgradeOperation),
		commands.WithTimeout[UpgradeCommand](0),
		commands.WithMessageFields(func(msg UpgradeCommand) map[string]any {
			if msg.Target == "" {
				return nil
			}
			return map[string]any{"target": msg.Target}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[UpgradeCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &UpgradeHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[UpgradeCommand].
func (h *UpgradeHandler) Execute(ctx context.Context, msg UpgradeCommand) error {
	return h.inner.Execute(ctx, msg)
}

// DowngradeHandler runs the driver downgrade through the shared command handler.
type DowngradeHandler struct {
	inner *commands.Handler[DowngradeCommand]
}

// NewDowngradeHandler creates a handler bound to migrator.
func NewDowngradeHandler(migrator Migrator, logger interfaces.Logger, report Reporter, opts ...commands.HandlerOption[DowngradeCommand]) *DowngradeHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg DowngradeCommand) error {
		reverted, err := migrator.Downgrade(ctx, msg.Target)
		emit(report, downgradeOperation, reverted)
		if err != nil {
			return err
		}
		logging.WithFields(baseLogger, map[string]any{
			"reverted_count": len(reverted),
		}).Info("migrate.command.downgrade.completed")
		return nil
	}

	handlerOpts := []commands.HandlerOption[DowngradeCommand]{
		commands.WithLogger[DowngradeCommand](baseLogger),
		commands.WithOperation[DowngradeCommand](downgradeOperation),
		commands.WithTimeout[DowngradeCommand](0),
		commands.WithMessageFields(func(msg DowngradeCommand) map[string]any {
			return map[string]any{"target": msg.Target}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[DowngradeCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &DowngradeHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[DowngradeCommand].
func (h *DowngradeHandler) Execute(ctx context.Context, msg DowngradeCommand) error {
	return h.inner.Execute(ctx, msg)
}

// StampHandler moves the head pointer through the shared command handler.
type StampHandler struct {
	inner *commands.Handler[StampCommand]
}

// NewStampHandler creates a handler bound to migrator.
func NewStampHandler(migrator Migrator, logger interfaces.Logger, opts ...commands.HandlerOption[StampCommand]) *StampHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg StampCommand) error {
		return migrator.Stamp(ctx, msg.Revision)
	}

	handlerOpts := []commands.HandlerOption[StampCommand]{
		commands.WithLogger[StampCommand](baseLogger),
		commands.WithOperation[StampCommand](stampOperation),
		commands.WithMessageFields(func(msg StampCommand) map[string]any {
			return map[string]any{"revision": msg.Revision}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[StampCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &StampHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[StampCommand].
func (h *StampHandler) Execute(ctx context.Context, msg StampCommand) error {
	return h.inner.Execute(ctx, msg)
}

func emit(report Reporter, operation string, revisions []string) {
	if report != nil && len(revisions) > 0 {
		report(operation, revisions)
	}
}
