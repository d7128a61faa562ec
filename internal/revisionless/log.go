package revisionless

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-mdmigrate/internal/identity"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Action is the kind of mutation recorded for an object.
type Action string

const (
	Created  Action = "created"
	Modified Action = "modified"
	Deleted  Action = "deleted"
)

const (
	MarkersTable = "objects_without_revisions"
	BatchesTable = "revisionless_batches"

	actionInvalidCode = "REVISIONLESS_ACTION_INVALID"
	typeRequiredCode  = "REVISIONLESS_OBJECT_TYPE_REQUIRED"
)

// Validate rejects actions outside created, modified and deleted.
func (a Action) Validate() error {
	return validation.Validate(string(a),
		validation.Required,
		validation.In(string(Created), string(Modified), string(Deleted)),
	)
}

// Marker is one row of the revisionless-modification log.
type Marker struct {
	bun.BaseModel `bun:"table:objects_without_revisions,alias:owr"`

	ID        int64     `bun:"id,pk,autoincrement"`
	ObjID     int64     `bun:"obj_id,notnull"`
	ObjType   string    `bun:"obj_type,notnull"`
	Action    Action    `bun:"action,notnull"`
	BatchID   int64     `bun:"batch_id,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

// Batch groups the markers written by one MarkBulk call. Ids grow
// monotonically so consumers can invalidate everything after a known batch.
type Batch struct {
	bun.BaseModel `bun:"table:revisionless_batches,alias:rb"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UID       string    `bun:"uid,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

// NewMarkerRepository creates a repository for markers. The uuid handed to
// the repository is derived from (obj_type, action, obj_id).
func NewMarkerRepository(db *bun.DB) repository.Repository[*Marker] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Marker]{
		NewRecord: func() *Marker { return &Marker{} },
		GetID: func(m *Marker) uuid.UUID {
			return identity.UUID(fmt.Sprintf("%s:%s:%d", m.ObjType, m.Action, m.ObjID))
		},
		SetID: func(*Marker, uuid.UUID) {},
	})
}

// NewBatchRepository creates a repository for batches. The uid column
// carries the repository id.
func NewBatchRepository(db *bun.DB) repository.Repository[*Batch] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Batch]{
		NewRecord: func() *Batch { return &Batch{} },
		GetID: func(b *Batch) uuid.UUID {
			id, err := uuid.Parse(b.UID)
			if err != nil {
				return uuid.Nil
			}
			return id
		},
		SetID: func(b *Batch, id uuid.UUID) {
			b.UID = id.String()
		},
	})
}

// Recorder writes markers stamped with its clock and reads them back.
type Recorder struct {
	batches repository.Repository[*Batch]
	markers repository.Repository[*Marker]
	now     func() time.Time
}

// NewRecorder builds the repositories on db and uses now, or the wall clock
// when nil. The db argument of each method picks the connection or
// transaction the statements run on.
func NewRecorder(db *bun.DB, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{
		batches: NewBatchRepository(db),
		markers: NewMarkerRepository(db),
		now:     now,
	}
}

// MarkBulk records action for ids of objectType using the wall clock.
func MarkBulk(ctx context.Context, db *bun.DB, ids []int64, objectType string, action Action) error {
	return NewRecorder(db, nil).MarkBulk(ctx, db, ids, objectType, action)
}

// MarkBulk records action for every distinct id under one new batch. An empty
// id list writes nothing. Markers already present for the same
// (id, type, action) are left as they are.
func (r *Recorder) MarkBulk(ctx context.Context, db bun.IDB, ids []int64, objectType string, action Action) error {
	if err := action.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid revisionless action").
			WithTextCode(actionInvalidCode)
	}
	if objectType == "" {
		return goerrors.Wrap(errors.New("object type is required"), goerrors.CategoryValidation, "invalid revisionless marker").
			WithTextCode(typeRequiredCode)
	}
	if len(ids) == 0 {
		return nil
	}

	distinct := slices.Clone(ids)
	slices.Sort(distinct)
	distinct = slices.Compact(distinct)

	now := r.now().UTC().Truncate(time.Second)
	batch, err := r.batches.CreateTx(ctx, db, &Batch{
		UID:       identity.BatchUUID(objectType, string(action), distinct, now).String(),
		CreatedAt: now,
	})
	if err != nil {
		return err
	}

	markers := make([]*Marker, 0, len(distinct))
	for _, id := range distinct {
		markers = append(markers, &Marker{
			ObjID:     id,
			ObjType:   objectType,
			Action:    action,
			BatchID:   batch.ID,
			CreatedAt: now,
		})
	}
	_, err = r.markers.CreateManyTx(ctx, db, markers, repository.InsertOnConflictIgnore())
	return err
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	ObjectType string
	Action     Action
	BatchID    int64
}

func (f Filter) criteria() repository.SelectCriteria {
	return repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		if f.ObjectType != "" {
			q = q.Where("?TableAlias.obj_type = ?", f.ObjectType)
		}
		if f.Action != "" {
			q = q.Where("?TableAlias.action = ?", string(f.Action))
		}
		if f.BatchID > 0 {
			q = q.Where("?TableAlias.batch_id = ?", f.BatchID)
		}
		return q
	})
}

// List returns markers on db ordered by type and object id.
func List(ctx context.Context, db *bun.DB, filter Filter) ([]Marker, error) {
	return NewRecorder(db, nil).List(ctx, db, filter)
}

// List returns the markers matching filter ordered by type and object id.
func (r *Recorder) List(ctx context.Context, db bun.IDB, filter Filter) ([]Marker, error) {
	records, _, err := r.markers.ListTx(ctx, db,
		filter.criteria(),
		repository.OrderBy("obj_type ASC", "obj_id ASC"),
		repository.SelectPaginate(0, 0),
	)
	if err != nil {
		return nil, err
	}
	out := make([]Marker, 0, len(records))
	for _, m := range records {
		out = append(out, *m)
	}
	return out, nil
}

// LatestBatch returns the newest batch on db, or nil when none were written.
func LatestBatch(ctx context.Context, db *bun.DB) (*Batch, error) {
	return NewRecorder(db, nil).LatestBatch(ctx, db)
}

// LatestBatch returns the newest batch, or nil when none were written.
func (r *Recorder) LatestBatch(ctx context.Context, db bun.IDB) (*Batch, error) {
	batch, err := r.batches.GetTx(ctx, db, repository.OrderBy("id DESC"))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return batch, nil
}
