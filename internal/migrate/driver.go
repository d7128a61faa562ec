package migrate

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-mdmigrate/internal/identity"
	"github.com/goliatone/go-mdmigrate/internal/logging"
	"github.com/goliatone/go-mdmigrate/pkg/interfaces"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	// TargetHead selects the registry tip.
	TargetHead = "head"
	// TargetBase selects the state before the root episode.
	TargetBase = "base"
)

// Driver applies episodes from a registry to one database, one transaction
// per episode.
type Driver struct {
	db       *bun.DB
	registry *Registry
	heads    headStore
	loggers  interfaces.LoggerProvider
	logger   interfaces.Logger
	clock    func() time.Time
}

// Option configures a Driver.
type Option func(*Driver)

// WithLoggerProvider sets the provider episode and driver loggers come from.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(d *Driver) {
		d.loggers = provider
	}
}

// WithClock overrides the clock used for mutation timestamps.
func WithClock(clock func() time.Time) Option {
	return func(d *Driver) {
		if clock != nil {
			d.clock = clock
		}
	}
}

// WithVersionTable overrides the head table name.
func WithVersionTable(table string) Option {
	return func(d *Driver) {
		if trimmed := strings.TrimSpace(table); trimmed != "" {
			d.heads.table = trimmed
		}
	}
}

// NewDriver binds registry to db.
func NewDriver(db *bun.DB, registry *Registry, opts ...Option) *Driver {
	d := &Driver{
		db:       db,
		registry: registry,
		heads:    headStore{table: DefaultVersionTable},
		clock:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	d.logger = logging.MigrateLogger(d.loggers)
	return d
}

// Current returns the applied head revision, "" for an empty store.
func (d *Driver) Current(ctx context.Context) (string, error) {
	if err := d.heads.ensure(ctx, d.db); err != nil {
		return "", err
	}
	return d.heads.read(ctx, d.db)
}

// History returns the registered episodes from root to head.
func (d *Driver) History() []Episode {
	return d.registry.History()
}

// Heads returns the registry tip revisions.
func (d *Driver) Heads() []string {
	return d.registry.Heads()
}

// Upgrade applies every episode after the current head up to target.
// An empty target or "head" selects the tip.
func (d *Driver) Upgrade(ctx context.Context, target string) ([]string, error) {
	if d.registry.Head() == "" {
		return nil, ErrRegistryEmpty
	}
	current, err := d.Current(ctx)
	if err != nil {
		return nil, err
	}
	from, err := d.registry.position(current)
	if err != nil {
		return nil, err
	}
	target = strings.TrimSpace(target)
	if target == "" || target == TargetHead {
		target = d.registry.Head()
	}
	to, err := d.registry.position(target)
	if err != nil {
		return nil, err
	}
	if to < from {
		return nil, fmt.Errorf("%w: %s is behind current %s", ErrNoPath, target, current)
	}

	runID := identity.RunID()
	logger := logging.WithFields(d.logger, map[string]any{"run_id": runID.String()})
	pending := d.registry.slice(from, to)
	if len(pending) == 0 {
		logger.Info("already at target", "revision", current)
		return nil, nil
	}

	applied := make([]string, 0, len(pending))
	for _, ep := range pending {
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		logger.Info("running upgrade", "from", ep.DownRevision, "to", ep.Revision, "description", ep.Description)
		if err := d.step(ctx, runID, ep, DirectionUpgrade, ep.Upgrade, ep.Revision); err != nil {
			logger.Error("upgrade failed", "revision", ep.Revision, "error", err)
			return applied, err
		}
		applied = append(applied, ep.Revision)
	}
	return applied, nil
}

// Downgrade reverses episodes from the current head down to target, which
// stays applied. "base" reverses everything; "-N" steps back N episodes.
// The whole path is checked first: a one-way episode on it refuses the
// downgrade before anything runs.
func (d *Driver) Downgrade(ctx context.Context, target string) ([]string, error) {
	current, err := d.Current(ctx)
	if err != nil {
		return nil, err
	}
	from, err := d.registry.position(current)
	if err != nil {
		return nil, err
	}
	to, err := d.resolveDowngradeTarget(strings.TrimSpace(target), from)
	if err != nil {
		return nil, err
	}
	if to > from {
		return nil, fmt.Errorf("%w: %s is ahead of current %s", ErrNoPath, target, current)
	}

	pending := d.registry.slice(to, from)
	for _, ep := range pending {
		if !ep.Reversible() {
			return nil, &EpisodeError{Revision: ep.Revision, Direction: DirectionDowngrade, Err: ErrDowngradeNotSupported}
		}
	}

	runID := identity.RunID()
	logger := logging.WithFields(d.logger, map[string]any{"run_id": runID.String()})
	reverted := make([]string, 0, len(pending))
	for i := len(pending) - 1; i >= 0; i-- {
		ep := pending[i]
		if err := ctx.Err(); err != nil {
			return reverted, err
		}
		logger.Info("running downgrade", "from", ep.Revision, "to", ep.DownRevision)
		if err := d.step(ctx, runID, ep, DirectionDowngrade, ep.Downgrade, ep.DownRevision); err != nil {
			logger.Error("downgrade failed", "revision", ep.Revision, "error", err)
			return reverted, err
		}
		reverted = append(reverted, ep.Revision)
	}
	return reverted, nil
}

func (d *Driver) resolveDowngradeTarget(target string, from int) (int, error) {
	switch {
	case target == "":
		return 0, fmt.Errorf("%w: downgrade target required", ErrNoPath)
	case target == TargetBase:
		return -1, nil
	case strings.HasPrefix(target, "-"):
		steps, err := strconv.Atoi(target[1:])
		if err != nil || steps <= 0 {
			return 0, fmt.Errorf("%w: invalid relative target %q", ErrNoPath, target)
		}
		if from-steps < -1 {
			return 0, fmt.Errorf("%w: cannot step back %d from %s", ErrNoPath, steps, d.registry.revisionAt(from))
		}
		return from - steps, nil
	default:
		return d.registry.position(target)
	}
}

// Stamp records revision as the head without running any episode.
func (d *Driver) Stamp(ctx context.Context, revision string) error {
	revision = strings.TrimSpace(revision)
	switch revision {
	case TargetHead:
		revision = d.registry.Head()
	case TargetBase:
		revision = ""
	}
	if _, err := d.registry.position(revision); err != nil {
		return err
	}
	if err := d.heads.ensure(ctx, d.db); err != nil {
		return err
	}
	return d.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return d.heads.write(ctx, tx, revision)
	})
}

func (d *Driver) step(ctx context.Context, runID uuid.UUID, ep Episode, direction string, fn Func, newHead string) error {
	err := d.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		op := NewOp(tx, OpConfig{
			Pool:      d.db,
			Revision:  ep.Revision,
			Direction: direction,
			RunID:     runID,
			Loggers:   d.loggers,
			Clock:     d.clock,
		})
		if err := fn(ctx, op); err != nil {
			return err
		}
		return d.heads.write(ctx, tx, newHead)
	})
	if err != nil {
		return &EpisodeError{Revision: ep.Revision, Direction: direction, Err: err}
	}
	return nil
}
