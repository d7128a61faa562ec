package migratecmd

import (
	"errors"

	"github.com/goliatone/go-mdmigrate/internal/commands"
	"github.com/goliatone/go-mdmigrate/pkg/interfaces"
)

// CommandRegistry is the minimal registration contract expected when wiring command handlers.
type CommandRegistry interface {
	RegisterCommand(handler any) error
}

// HandlerSet groups the handlers produced by RegisterMigrateCommands.
type HandlerSet struct {
	Upgrade   *UpgradeHandler
	Downgrade *DowngradeHandler
	Stamp     *StampHandler
}

// Option customises handler wiring during registration.
type Option func(*options)

type options struct {
	reporter      Reporter
	upgradeOpts   []commands.HandlerOption[UpgradeCommand]
	downgradeOpts []commands.HandlerOption[DowngradeCommand]
	stampOpts     []commands.HandlerOption[StampCommand]
}

// WithReporter receives the revisions touched by upgrade and downgrade.
func WithReporter(report Reporter) Option {
	return func(cfg *options) {
		cfg.reporter = report
	}
}

// WithUpgradeHandlerOptions forwards options to the UpgradeHandler constructor.
func WithUpgradeHandlerOptions(opts ...commands.HandlerOption[UpgradeCommand]) Option {
	return func(cfg *options) {
		cfg.upgradeOpts = append(cfg.upgradeOpts, opts...)
	}
}

// WithDowngradeHandlerOptions forwards options to the DowngradeHandler constructor.
func WithDowngradeHandlerOptions(opts ...commands.HandlerOption[DowngradeCommand]) Option {
	return func(cfg *options) {
		cfg.downgradeOpts = append(cfg.downgradeOpts, opts...)
	}
}

// WithStampHandlerOptions forwards options to the StampHandler constructor.
func WithStampHandlerOptions(opts ...commands.HandlerOption[StampCommand]) Option {
	return func(cfg *options) {
		cfg.stampOpts = append(cfg.stampOpts, opts...)
	}
}

// RegisterMigrateCommands builds the migration handlers and registers them
// with reg when it is not nil.
func RegisterMigrateCommands(reg CommandRegistry, migrator Migrator, provider interfaces.LoggerProvider, opts ...Option) (*HandlerSet, error) {
	if migrator == nil {
		return nil, errors.New("migrate command registration: migrator is nil")
	}

	cfg := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	logger := commands.CommandLogger(provider, "migrate")
	set := &HandlerSet{
		Upgrade:   NewUpgradeHandler(migrator, logger, cfg.reporter, cfg.upgradeOpts...),
		Downgrade: NewDowngradeHandler(migrator, logger, cfg.reporter, cfg.downgradeOpts...),
		Stamp:     NewStampHandler(migrator, logger, cfg.stampOpts...),
	}

	if reg != nil {
		for _, handler := range []any{set.Upgrade, set.Downgrade, set.Stamp} {
			if err := reg.RegisterCommand(handler); err != nil {
				return nil, err
			}
		}
	}
	return set, nil
}
