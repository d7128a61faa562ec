package revisionless

import (
	"context"

	"github.com/goliatone/go-mdmigrate/internal/sqlops"
)

const markersDDL = `CREATE TABLE IF NOT EXISTS objects_without_revisions (
	id {{ .PK }},
	obj_id INTEGER NOT NULL,
	obj_type VARCHAR(250) NOT NULL,
	action VARCHAR(250) NOT NULL,
	batch_id INTEGER NOT NULL,
	created_at {{ .DateTime }} NOT NULL
)`

const batchesDDL = `CREATE TABLE IF NOT EXISTS revisionless_batches (
	id {{ .PK }},
	uid VARCHAR(36) NOT NULL,
	created_at {{ .DateTime }} NOT NULL
)`

// CreateTables creates both log tables and the marker key.
func CreateTables(ctx context.Context, ops *sqlops.Ops) error {
	if err := ops.ExecTemplate(ctx, BatchesTable, batchesDDL); err != nil {
		return err
	}
	if err := ops.ExecTemplate(ctx, MarkersTable, markersDDL); err != nil {
		return err
	}
	return ops.AddUniqueConstraint(ctx, MarkersTable, "uq_objects_without_revisions", "obj_id", "obj_type", "action")
}

// DropTables removes both log tables.
func DropTables(ctx context.Context, ops *sqlops.Ops) error {
	if err := ops.DropTable(ctx, MarkersTable); err != nil {
		return err
	}
	return ops.DropTable(ctx, BatchesTable)
}
