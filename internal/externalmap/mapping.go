package externalmap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-mdmigrate/internal/identity"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	Table = "external_mappings"

	TypeCustomAttribute           = "CustomAttribute"
	TypeCustomAttributeDefinition = "custom_attribute_definition"

	mappingInvalidCode = "EXTERNAL_MAPPING_INVALID"
)

// ErrNotFound is returned by Get when no mapping has the key.
var ErrNotFound = errors.New("external mapping not found")

// AllowedExternalTypes is the fixed set of external_type values.
var AllowedExternalTypes = []string{TypeCustomAttribute, TypeCustomAttributeDefinition}

// Mapping links a local object to its id in an external system.
// (external_type, external_id) is the key.
type Mapping struct {
	bun.BaseModel `bun:"table:external_mappings,alias:em"`

	ObjectType   string    `bun:"object_type,notnull"`
	ObjectID     int64     `bun:"object_id,notnull"`
	ExternalType string    `bun:"external_type,pk"`
	ExternalID   int64     `bun:"external_id,pk"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
}

// New validates and returns a mapping. CreatedAt is left for the store.
func New(objectType string, objectID int64, externalType string, externalID int64) (*Mapping, error) {
	m := &Mapping{
		ObjectType:   strings.TrimSpace(objectType),
		ObjectID:     objectID,
		ExternalType: strings.TrimSpace(externalType),
		ExternalID:   externalID,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks the mapping invariants.
func (m Mapping) Validate() error {
	allowed := make([]any, len(AllowedExternalTypes))
	for i, value := range AllowedExternalTypes {
		allowed[i] = value
	}
	err := validation.ValidateStruct(&m,
		validation.Field(&m.ObjectType, validation.Required),
		validation.Field(&m.ObjectID, validation.Required, validation.Min(int64(1))),
		validation.Field(&m.ExternalType, validation.Required, validation.In(allowed...)),
		validation.Field(&m.ExternalID, validation.Required, validation.Min(int64(1))),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid external mapping").
			WithTextCode(mappingInvalidCode)
	}
	return nil
}

// NewRepository creates a repository for Mapping rows. Mappings carry no
// uuid column, so the id is derived from the external key.
func NewRepository(db *bun.DB) repository.Repository[*Mapping] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Mapping]{
		NewRecord: func() *Mapping { return &Mapping{} },
		GetID: func(m *Mapping) uuid.UUID {
			return identity.UUID(fmt.Sprintf("%s:%d", m.ExternalType, m.ExternalID))
		},
		SetID: func(*Mapping, uuid.UUID) {},
	})
}

// Store persists mappings through the repository, on db or on the
// transaction given to WithTx.
type Store struct {
	repo repository.Repository[*Mapping]
	tx   bun.IDB
	now  func() time.Time
}

// NewStore binds a store to db. now stamps CreatedAt when it is zero; nil
// uses the wall clock.
func NewStore(db *bun.DB, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{repo: NewRepository(db), tx: db, now: now}
}

// WithTx returns a copy of s that reads and writes through tx.
func (s *Store) WithTx(tx bun.IDB) *Store {
	clone := *s
	clone.tx = tx
	return &clone
}

// Create validates and inserts m. A duplicate key fails.
func (s *Store) Create(ctx context.Context, m *Mapping) error {
	if err := s.prepare(m); err != nil {
		return err
	}
	_, err := s.repo.CreateTx(ctx, s.tx, m)
	return err
}

// CreateIgnoringConflicts validates every mapping and inserts them, skipping
// keys that already exist. It returns the number of rows written.
func (s *Store) CreateIgnoringConflicts(ctx context.Context, mappings []*Mapping) (int64, error) {
	if len(mappings) == 0 {
		return 0, nil
	}
	for _, m := range mappings {
		if err := s.prepare(m); err != nil {
			return 0, err
		}
	}
	before, err := s.repo.CountTx(ctx, s.tx)
	if err != nil {
		return 0, err
	}
	if _, err := s.repo.CreateManyTx(ctx, s.tx, mappings, repository.InsertOnConflictIgnore()); err != nil {
		return 0, err
	}
	after, err := s.repo.CountTx(ctx, s.tx)
	if err != nil {
		return 0, err
	}
	return int64(after - before), nil
}

// Get returns the mapping for an external key.
func (s *Store) Get(ctx context.Context, externalType string, externalID int64) (*Mapping, error) {
	m, err := s.repo.GetTx(ctx, s.tx, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.external_type = ?", externalType).
			Where("?TableAlias.external_id = ?", externalID)
	}))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

// ListByObject returns the mappings of one local object ordered by key.
func (s *Store) ListByObject(ctx context.Context, objectType string, objectID int64) ([]Mapping, error) {
	records, _, err := s.repo.ListTx(ctx, s.tx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.object_type = ?", objectType).
				Where("?TableAlias.object_id = ?", objectID)
		}),
		repository.OrderBy("external_type ASC", "external_id ASC"),
		repository.SelectPaginate(0, 0),
	)
	if err != nil {
		return nil, err
	}
	out := make([]Mapping, 0, len(records))
	for _, m := range records {
		out = append(out, *m)
	}
	return out, nil
}

// Count returns the number of stored mappings, optionally narrowed to one
// external type.
func (s *Store) Count(ctx context.Context, externalType ...string) (int, error) {
	var criteria []repository.SelectCriteria
	if len(externalType) > 0 {
		criteria = append(criteria, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.external_type IN (?)", bun.In(externalType))
		}))
	}
	return s.repo.CountTx(ctx, s.tx, criteria...)
}

func (s *Store) prepare(m *Mapping) error {
	if m == nil {
		return goerrors.Wrap(errors.New("mapping is nil"), goerrors.CategoryValidation, "invalid external mapping").
			WithTextCode(mappingInvalidCode)
	}
	if err := m.Validate(); err != nil {
		return err
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now().UTC().Truncate(time.Second)
	}
	return nil
}
