package migrate

import (
	"context"
	"time"

	"github.com/goliatone/go-mdmigrate/internal/externalmap"
	"github.com/goliatone/go-mdmigrate/internal/logging"
	"github.com/goliatone/go-mdmigrate/internal/revisionless"
	"github.com/goliatone/go-mdmigrate/internal/sqlops"
	"github.com/goliatone/go-mdmigrate/pkg/interfaces"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	DirectionUpgrade   = "upgrade"
	DirectionDowngrade = "downgrade"
)

// Func is the body of an episode step. It runs inside the transaction held
// by op and must not begin or commit transactions itself.
type Func func(ctx context.Context, op *Op) error

// Episode is one versioned migration step. A nil Downgrade means the step
// cannot be reversed.
type Episode struct {
	Revision     string
	DownRevision string
	Description  string
	Upgrade      Func
	Downgrade    Func
}

// Reversible reports whether the episode has a downgrade.
func (e Episode) Reversible() bool {
	return e.Downgrade != nil
}

// Op is the handle an episode works through: the running transaction plus
// the helpers bound to it.
type Op struct {
	DB        bun.IDB
	SQL       *sqlops.Ops
	Logger    interfaces.Logger
	Revision  string
	Direction string
	RunID     uuid.UUID
	// StartedAt is the transaction start, truncated to the second.
	StartedAt time.Time

	// Mappings reads and writes external mappings in the step transaction.
	Mappings *externalmap.Store

	loggers  interfaces.LoggerProvider
	clock    func() time.Time
	recorder *revisionless.Recorder
}

// OpConfig carries the optional collaborators of NewOp.
type OpConfig struct {
	// Pool is the handle repositories are built on. It defaults to db when
	// db is itself a *bun.DB.
	Pool      *bun.DB
	Revision  string
	Direction string
	RunID     uuid.UUID
	Loggers   interfaces.LoggerProvider
	Clock     func() time.Time
}

// NewOp binds helpers to db. The driver builds one per step; tests use it
// to run episode bodies directly.
func NewOp(db bun.IDB, cfg OpConfig) *Op {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	pool := cfg.Pool
	if pool == nil {
		pool, _ = db.(*bun.DB)
	}
	op := &Op{
		DB:        db,
		SQL:       sqlops.New(db),
		Revision:  cfg.Revision,
		Direction: cfg.Direction,
		RunID:     cfg.RunID,
		loggers:   cfg.Loggers,
		clock:     clock,
	}
	op.StartedAt = op.truncate(clock())
	if pool != nil {
		op.recorder = revisionless.NewRecorder(pool, op.Now)
		op.Mappings = externalmap.NewStore(pool, op.Now).WithTx(db)
	}
	op.Logger = op.withRun(logging.WithEpisode(logging.EpisodesLogger(cfg.Loggers), cfg.Revision, cfg.Direction))
	return op
}

// Now returns the mutation timestamp: UTC, second precision and never
// before StartedAt.
func (o *Op) Now() time.Time {
	now := o.truncate(o.clock())
	if now.Before(o.StartedAt) {
		return o.StartedAt
	}
	return now
}

// RichTextLogger returns the converter logger annotated with the step.
func (o *Op) RichTextLogger() interfaces.Logger {
	return o.withRun(logging.WithEpisode(logging.RichTextLogger(o.loggers), o.Revision, o.Direction))
}

// MarkBulk records revisionless markers stamped with the op clock.
func (o *Op) MarkBulk(ctx context.Context, ids []int64, objectType string, action revisionless.Action) error {
	if o.recorder == nil {
		return ErrNoPool
	}
	return o.recorder.MarkBulk(ctx, o.DB, ids, objectType, action)
}

func (o *Op) truncate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func (o *Op) withRun(logger interfaces.Logger) interfaces.Logger {
	if o.RunID == uuid.Nil {
		return logger
	}
	return logging.WithFields(logger, map[string]any{"run_id": o.RunID.String()})
}
