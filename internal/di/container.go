package di

import (
	"strings"
	"time"

	migratecmd "github.com/goliatone/go-mdmigrate/internal/commands/migrate"
	"github.com/goliatone/go-mdmigrate/internal/episodes"
	"github.com/goliatone/go-mdmigrate/internal/logging"
	"github.com/goliatone/go-mdmigrate/internal/logging/console"
	"github.com/goliatone/go-mdmigrate/internal/logging/gologger"
	"github.com/goliatone/go-mdmigrate/internal/migrate"
	"github.com/goliatone/go-mdmigrate/internal/runtimeconfig"
	"github.com/goliatone/go-mdmigrate/pkg/interfaces"
	"github.com/uptrace/bun"
)

// Container wires the configured database, loggers, episode chain, driver
// and command handlers.
type Container struct {
	Config runtimeconfig.Config

	bunDB          *bun.DB
	ownsDB         bool
	loggerProvider interfaces.LoggerProvider
	clock          func() time.Time
	registry       *migrate.Registry
	commandOpts    []migratecmd.Option
	commandReg     migratecmd.CommandRegistry

	driver   *migrate.Driver
	commands *migratecmd.HandlerSet
}

// Option mutates the container before services are built.
type Option func(*Container)

// WithBunDB uses db instead of opening Config.Database. The caller keeps
// ownership of db.
func WithBunDB(db *bun.DB) Option {
	return func(c *Container) {
		c.bunDB = db
	}
}

// WithLoggerProvider overrides the provider built from Config.Logging.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		c.loggerProvider = provider
	}
}

// WithClock overrides the wall clock handed to episodes.
func WithClock(clock func() time.Time) Option {
	return func(c *Container) {
		c.clock = clock
	}
}

// WithRegistry replaces the built-in episode chain.
func WithRegistry(registry *migrate.Registry) Option {
	return func(c *Container) {
		c.registry = registry
	}
}

// WithCommandOptions forwards options to the migrate command registration.
func WithCommandOptions(opts ...migratecmd.Option) Option {
	return func(c *Container) {
		c.commandOpts = append(c.commandOpts, opts...)
	}
}

// WithCommandRegistry registers the migrate handlers with reg, e.g. a
// go-command registry.
func WithCommandRegistry(reg migratecmd.CommandRegistry) Option {
	return func(c *Container) {
		c.commandReg = reg
	}
}

// NewContainer validates cfg and builds every service.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Container{Config: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.loggerProvider == nil {
		provider, err := newLoggerProvider(cfg.Logging)
		if err != nil {
			return nil, err
		}
		c.loggerProvider = provider
	}

	if c.registry == nil {
		registry, err := episodes.NewRegistry()
		if err != nil {
			return nil, err
		}
		c.registry = registry
	}

	if c.bunDB == nil {
		db, err := OpenDB(cfg.Database)
		if err != nil {
			return nil, err
		}
		c.bunDB = db
		c.ownsDB = true
	}

	driverOpts := []migrate.Option{migrate.WithLoggerProvider(c.loggerProvider)}
	if c.clock != nil {
		driverOpts = append(driverOpts, migrate.WithClock(c.clock))
	}
	if table := strings.TrimSpace(cfg.Migrations.VersionTable); table != "" {
		driverOpts = append(driverOpts, migrate.WithVersionTable(table))
	}
	c.driver = migrate.NewDriver(c.bunDB, c.registry, driverOpts...)

	set, err := migratecmd.RegisterMigrateCommands(c.commandReg, c.driver, c.loggerProvider, c.commandOpts...)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.commands = set

	logging.ModuleLogger(c.loggerProvider, "grc").Debug("container.configured",
		"driver", runtimeconfig.NormalizeDriver(cfg.Database.Driver),
		"episodes", len(c.registry.History()),
	)
	return c, nil
}

func newLoggerProvider(cfg runtimeconfig.LoggingConfig) (interfaces.LoggerProvider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "gologger":
		return gologger.NewProvider(gologger.Config{
			Level:     cfg.Level,
			Format:    cfg.Format,
			AddSource: cfg.AddSource,
			Focus:     cfg.Focus,
		})
	default:
		return console.NewProvider(console.Options{MinLevel: console.ParseLevel(cfg.Level)}), nil
	}
}

// DB returns the database the driver runs on.
func (c *Container) DB() *bun.DB {
	return c.bunDB
}

// LoggerProvider returns the resolved logger provider.
func (c *Container) LoggerProvider() interfaces.LoggerProvider {
	return c.loggerProvider
}

// Driver returns the migration driver.
func (c *Container) Driver() *migrate.Driver {
	return c.driver
}

// Commands returns the migrate command handlers.
func (c *Container) Commands() *migratecmd.HandlerSet {
	return c.commands
}

// Close releases the database when the container opened it.
func (c *Container) Close() error {
	if c == nil || c.bunDB == nil || !c.ownsDB {
		return nil
	}
	return c.bunDB.Close()
}
