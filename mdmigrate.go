package mdmigrate

import (
	"context"
	"errors"
	"slices"

	migratecmd "github.com/goliatone/go-mdmigrate/internal/commands/migrate"
	"github.com/goliatone/go-mdmigrate/internal/di"
	"github.com/goliatone/go-mdmigrate/internal/externalmap"
	"github.com/goliatone/go-mdmigrate/internal/markdown"
	"github.com/goliatone/go-mdmigrate/internal/migrate"
	"github.com/goliatone/go-mdmigrate/internal/revisionless"
	"github.com/goliatone/go-mdmigrate/internal/sqlops"
)

// Episode exports one step of the migration chain.
type Episode = migrate.Episode

// EpisodeError reports the revision and direction a run halted at.
type EpisodeError = migrate.EpisodeError

// Marker is one row of the revisionless-modification log.
type Marker = revisionless.Marker

// MarkerFilter narrows Markers. Zero fields match everything.
type MarkerFilter = revisionless.Filter

// MarkerAction is the mutation a marker records.
type MarkerAction = revisionless.Action

// Batch groups the markers written together.
type Batch = revisionless.Batch

// Mapping links a local object to its id in an external system.
type Mapping = externalmap.Mapping

// Option customises the module wiring.
type Option = di.Option

var (
	WithBunDB          = di.WithBunDB
	WithLoggerProvider = di.WithLoggerProvider
	WithClock          = di.WithClock
	WithRegistry       = di.WithRegistry
)

// ErrDowngradeNotSupported is returned when a downgrade path crosses a
// one-way episode. Nothing is reverted in that case.
var ErrDowngradeNotSupported = migrate.ErrDowngradeNotSupported

const (
	TargetHead = migrate.TargetHead
	TargetBase = migrate.TargetBase
)

// Module is the top level migration façade.
type Module struct {
	container *di.Container
	touched   []string
}

// New builds a module from cfg. The database is opened unless WithBunDB is
// supplied.
func New(cfg Config, opts ...Option) (*Module, error) {
	m := &Module{}
	reporter := di.WithCommandOptions(migratecmd.WithReporter(func(_ string, revisions []string) {
		m.touched = append(m.touched, revisions...)
	}))
	container, err := di.NewContainer(cfg, append(slices.Clone(opts), reporter)...)
	if err != nil {
		return nil, err
	}
	m.container = container
	return m, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// Upgrade applies every episode after the current head up to target and
// returns the applied revisions in order. An empty target means head.
func (m *Module) Upgrade(ctx context.Context, target string) ([]string, error) {
	m.touched = nil
	err := m.container.Commands().Upgrade.Execute(ctx, migratecmd.UpgradeCommand{Target: target})
	return m.drain(), err
}

// Downgrade reverts episodes down to target (`base`, a revision, or `-N`)
// and returns the reverted revisions in order.
func (m *Module) Downgrade(ctx context.Context, target string) ([]string, error) {
	m.touched = nil
	err := m.container.Commands().Downgrade.Execute(ctx, migratecmd.DowngradeCommand{Target: target})
	return m.drain(), err
}

// Stamp records revision as the head without running episodes.
func (m *Module) Stamp(ctx context.Context, revision string) error {
	return m.container.Commands().Stamp.Execute(ctx, migratecmd.StampCommand{Revision: revision})
}

// Current returns the applied head, "" before the first episode.
func (m *Module) Current(ctx context.Context) (string, error) {
	return m.container.Driver().Current(ctx)
}

// History returns the registered episodes from root to head.
func (m *Module) History() []Episode {
	return m.container.Driver().History()
}

// Heads returns the tip revisions of the chain.
func (m *Module) Heads() []string {
	return m.container.Driver().Heads()
}

// Markers returns the revisionless-modification log ordered by object type
// and id. It is empty until the log table exists.
func (m *Module) Markers(ctx context.Context, filter MarkerFilter) ([]Marker, error) {
	db := m.container.DB()
	if ok, err := sqlops.New(db).HasTable(ctx, revisionless.MarkersTable); err != nil || !ok {
		return nil, err
	}
	return revisionless.List(ctx, db, filter)
}

// LatestBatch returns the newest marker batch, or nil when none exist.
func (m *Module) LatestBatch(ctx context.Context) (*Batch, error) {
	db := m.container.DB()
	if ok, err := sqlops.New(db).HasTable(ctx, revisionless.BatchesTable); err != nil || !ok {
		return nil, err
	}
	return revisionless.LatestBatch(ctx, db)
}

// Mappings returns the external mappings of one local object and the total
// number of mappings stored.
func (m *Module) Mappings(ctx context.Context, objectType string, objectID int64) ([]Mapping, int, error) {
	db := m.container.DB()
	if ok, err := sqlops.New(db).HasTable(ctx, externalmap.Table); err != nil || !ok {
		return nil, 0, err
	}
	store := externalmap.NewStore(db, nil)
	mappings, err := store.ListByObject(ctx, objectType, objectID)
	if err != nil {
		return nil, 0, err
	}
	total, err := store.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return mappings, total, nil
}

// Close releases the database when the module opened it.
func (m *Module) Close() error {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Close()
}

func (m *Module) drain() []string {
	out := m.touched
	m.touched = nil
	return out
}

// IsDowngradeRefused reports whether err is a downgrade refusal.
func IsDowngradeRefused(err error) bool {
	return errors.Is(err, ErrDowngradeNotSupported)
}

// ToMarkdown converts one rich-text value the way the migration does.
func ToMarkdown(html string) string {
	return markdown.FromHTML(html)
}

// RenderHTML renders Markdown with the GFM goldmark parser.
func RenderHTML(source []byte) ([]byte, error) {
	return markdown.NewGoldmarkParser(markdown.RenderOptions{}).Parse(source)
}
