package externalmap

import (
	"context"

	"github.com/goliatone/go-mdmigrate/internal/sqlops"
)

const tableDDL = `CREATE TABLE IF NOT EXISTS external_mappings (
	object_type VARCHAR(255) NOT NULL,
	object_id INTEGER NOT NULL,
	external_type {{ enum "external_type" "CustomAttribute" "custom_attribute_definition" }} NOT NULL,
	external_id INTEGER NOT NULL,
	created_at {{ .DateTime }} NOT NULL,
	PRIMARY KEY (external_id, external_type)
)`

// CreateTable creates external_mappings with its key and uq_external_object.
func CreateTable(ctx context.Context, ops *sqlops.Ops) error {
	if err := ops.ExecTemplate(ctx, Table, tableDDL); err != nil {
		return err
	}
	return ops.AddUniqueConstraint(ctx, Table, "uq_external_object", "external_id", "external_type")
}

// DropTable removes external_mappings.
func DropTable(ctx context.Context, ops *sqlops.Ops) error {
	if err := ops.DropUniqueConstraint(ctx, Table, "uq_external_object"); err != nil {
		return err
	}
	return ops.DropTable(ctx, Table)
}
