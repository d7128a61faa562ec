package episodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-mdmigrate/internal/externalmap"
	"github.com/goliatone/go-mdmigrate/internal/kinds"
	"github.com/goliatone/go-mdmigrate/internal/migrate"
	"github.com/goliatone/go-mdmigrate/internal/sqlops"
	"github.com/uptrace/bun"
)

const (
	contractsTable          = "contracts"
	policiesTable           = "policies"
	directivesTable         = "directives"
	componentsTable         = "issuetracker_components"
	cadTable                = "custom_attribute_definitions"
	cavTable                = "custom_attribute_values"
	evidencesTable          = "evidences"
	uqExternalID            = "uq_external_id"
	uqExternalSlug          = "uq_external_slug"
	uqCustomAttributeValue  = "uq_custom_attribute_value"
	uqEvidenceTitle         = "uq_t_evidences"
	cadObjectType           = "CustomAttributeDefinition"
	externalIDDefinition    = "INTEGER NULL"
	externalSlugDefinition  = "VARCHAR(255) NULL"
	createdByIDDefinition   = "INTEGER NULL"
	objectIDNotNullDefault0 = "INTEGER NOT NULL DEFAULT 0"
)

// Seed components that are referenced by issue tracker configuration but
// may have no issue yet.
var seedComponents = []string{"398781", "188208"}

var directiveColumns = []string{
	"id", "title", "slug", "description", "notes", "test_plan", "status",
	"modified_by_id", "context_id", "created_at", "updated_at",
}

func contractsPolicies() migrate.Episode {
	return migrate.Episode{
		Revision:    RevContractsPolicies,
		Description: "split contracts and policies out of directives",
		Upgrade: func(ctx context.Context, op *migrate.Op) error {
			splits := []struct{ table, metaKind string }{
				{contractsTable, "Contract"},
				{policiesTable, "Policy"},
			}
			// MySQL commits implicitly on DDL, so every table exists before
			// the first copy and the copies skip rows already moved.
			for _, split := range splits {
				if err := createObjectTable(ctx, op.SQL, split.table, ""); err != nil {
					return err
				}
			}
			cols := strings.Join(directiveColumns, ", ")
			for _, split := range splits {
				moved, err := op.SQL.InsertIgnoreSelect(ctx, split.table, directiveColumns,
					"SELECT "+cols+" FROM ? WHERE meta_kind = ?",
					bun.Ident(directivesTable), split.metaKind)
				if err != nil {
					return err
				}
				op.Logger.Info(fmt.Sprintf("%d rows moved to %s", moved, split.table))
			}
			return nil
		},
		Downgrade: func(ctx context.Context, op *migrate.Op) error {
			if err := op.SQL.DropTable(ctx, policiesTable); err != nil {
				return err
			}
			return op.SQL.DropTable(ctx, contractsTable)
		},
	}
}

type externalColumn struct {
	name       string
	definition string
	constraint string
}

var scopeExternal = []externalColumn{
	{name: "external_id", definition: externalIDDefinition, constraint: uqExternalID},
	{name: "external_slug", definition: externalSlugDefinition, constraint: uqExternalSlug},
}

var fiveObjExternal = append(append([]externalColumn(nil), scopeExternal...),
	externalColumn{name: "created_by_id", definition: createdByIDDefinition})

func addExternalColumns(ctx context.Context, ops *sqlops.Ops, tables []string, columns []externalColumn) error {
	for _, table := range tables {
		for _, column := range columns {
			if err := ops.AddColumn(ctx, table, column.name, column.definition); err != nil {
				return err
			}
			if column.constraint == "" {
				continue
			}
			if err := ops.AddUniqueConstraint(ctx, table, column.constraint, column.name); err != nil {
				return err
			}
		}
	}
	return nil
}

func dropExternalColumns(ctx context.Context, ops *sqlops.Ops, tables []string, columns []externalColumn) error {
	for _, table := range tables {
		for i := len(columns) - 1; i >= 0; i-- {
			column := columns[i]
			if column.constraint != "" {
				if err := ops.DropUniqueConstraint(ctx, table, column.constraint); err != nil {
					return err
				}
			}
			if err := ops.DropColumn(ctx, table, column.name); err != nil {
				return err
			}
		}
	}
	return nil
}

func scopeExternalColumns() migrate.Episode {
	return migrate.Episode{
		Revision:    RevScopeExternalColumns,
		Description: "external_id and external_slug on scope objects",
		Upgrade: func(ctx context.Context, op *migrate.Op) error {
			return addExternalColumns(ctx, op.SQL, kinds.Tables(kinds.ScopeKinds()), scopeExternal)
		},
		Downgrade: func(ctx context.Context, op *migrate.Op) error {
			return dropExternalColumns(ctx, op.SQL, kinds.Tables(kinds.ScopeKinds()), scopeExternal)
		},
	}
}

func fiveObjExternalColumns() migrate.Episode {
	return migrate.Episode{
		Revision:    RevFiveObjExternalColumns,
		Description: "external_id, external_slug and created_by_id on 5OBJ",
		Upgrade: func(ctx context.Context, op *migrate.Op) error {
			return addExternalColumns(ctx, op.SQL, kinds.Tables(kinds.FiveObjKinds()), fiveObjExternal)
		},
		Downgrade: func(ctx context.Context, op *migrate.Op) error {
			return dropExternalColumns(ctx, op.SQL, kinds.Tables(kinds.FiveObjKinds()), fiveObjExternal)
		},
	}
}

func externalMappings() migrate.Episode {
	return migrate.Episode{
		Revision:    RevExternalMappings,
		Description: "external_mappings table",
		Upgrade: func(ctx context.Context, op *migrate.Op) error {
			return externalmap.CreateTable(ctx, op.SQL)
		},
		Downgrade: func(ctx context.Context, op *migrate.Op) error {
			return externalmap.DropTable(ctx, op.SQL)
		},
	}
}

type issuetrackerComponent struct {
	bun.BaseModel `bun:"table:issuetracker_components"`

	ComponentID string `bun:"component_id,pk"`
}

func issuetrackerComponents() migrate.Episode {
	return migrate.Episode{
		Revision:    RevIssuetrackerComponents,
		Description: "issuetracker_components seeded from issues",
		Upgrade: func(ctx context.Context, op *migrate.Op) error {
			if err := op.SQL.ExecTemplate(ctx, componentsTable,
				`CREATE TABLE IF NOT EXISTS issuetracker_components (component_id VARCHAR(50) NOT NULL PRIMARY KEY)`); err != nil {
				return err
			}
			fromIssues, err := op.SQL.InsertIgnoreSelect(ctx, componentsTable, []string{"component_id"},
				"SELECT DISTINCT component_id FROM issuetracker_issues WHERE component_id IS NOT NULL")
			if err != nil {
				return err
			}
			seed := make([]issuetrackerComponent, 0, len(seedComponents))
			for _, id := range seedComponents {
				seed = append(seed, issuetrackerComponent{ComponentID: id})
			}
			res, err := op.DB.NewInsert().Model(&seed).Ignore().Returning("NULL").Exec(ctx)
			if err != nil {
				return err
			}
			seeded, _ := res.RowsAffected()
			op.Logger.Info(fmt.Sprintf("%d rows moved to %s", fromIssues+seeded, componentsTable))
			return nil
		},
		Downgrade: func(ctx context.Context, op *migrate.Op) error {
			return op.SQL.DropTable(ctx, componentsTable)
		},
	}
}

func cavAttributeObjectIDNN() migrate.Episode {
	return migrate.Episode{
		Revision:    RevCAVAttributeObjectIDNN,
		Description: "non-null attribute_object_id on custom_attribute_values",
		Upgrade: func(ctx context.Context, op *migrate.Op) error {
			if err := op.SQL.AddColumn(ctx, cavTable, "attribute_object_id_nn", objectIDNotNullDefault0); err != nil {
				return err
			}
			if _, err := op.SQL.Exec(ctx,
				"UPDATE ? SET attribute_object_id_nn = attribute_object_id WHERE attribute_object_id IS NOT NULL",
				bun.Ident(cavTable)); err != nil {
				return err
			}
			if err := op.SQL.DropUniqueConstraint(ctx, cavTable, uqCustomAttributeValue); err != nil {
				return err
			}
			return op.SQL.AddUniqueConstraint(ctx, cavTable, uqCustomAttributeValue,
				"custom_attribute_id", "attributable_id", "attribute_object_id_nn")
		},
		Downgrade: func(ctx context.Context, op *migrate.Op) error {
			if err := op.SQL.DropUniqueConstraint(ctx, cavTable, uqCustomAttributeValue); err != nil {
				return err
			}
			if err := op.SQL.AddUniqueConstraint(ctx, cavTable, uqCustomAttributeValue,
				"custom_attribute_id", "attributable_id"); err != nil {
				return err
			}
			return op.SQL.DropColumn(ctx, cavTable, "attribute_object_id_nn")
		},
	}
}

func caPreviousID() migrate.Episode {
	return migrate.Episode{
		Revision:    RevCAPreviousID,
		Description: "previous_id on custom attributes, external_name on definitions",
		Upgrade: func(ctx context.Context, op *migrate.Op) error {
			for _, table := range []string{cadTable, cavTable} {
				if err := op.SQL.AddColumn(ctx, table, "previous_id", "INTEGER NULL"); err != nil {
					return err
				}
			}
			return op.SQL.AddColumn(ctx, cadTable, "external_name", "VARCHAR(255) NULL")
		},
		Downgrade: func(ctx context.Context, op *migrate.Op) error {
			if err := op.SQL.DropColumn(ctx, cadTable, "external_name"); err != nil {
				return err
			}
			for _, table := range []string{cavTable, cadTable} {
				if err := op.SQL.DropColumn(ctx, table, "previous_id"); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

type previousIDRow struct {
	ID         int64 `bun:"id"`
	PreviousID int64 `bun:"previous_id"`
}

func caExternalMappingsBackfill() migrate.Episode {
	return migrate.Episode{
		Revision:    RevCAExternalMappingsBackfill,
		Description: "external mappings for definitions carrying previous_id",
		Upgrade: func(ctx context.Context, op *migrate.Op) error {
			var rows []previousIDRow
			if err := op.DB.NewRaw("SELECT id, previous_id FROM ? WHERE previous_id IS NOT NULL ORDER BY id",
				bun.Ident(cadTable)).Scan(ctx, &rows); err != nil {
				return err
			}
			mappings := make([]*externalmap.Mapping, 0, len(rows))
			for _, row := range rows {
				m, err := externalmap.New(cadObjectType, row.ID, externalmap.TypeCustomAttributeDefinition, row.PreviousID)
				if err != nil {
					return err
				}
				mappings = append(mappings, m)
			}
			if op.Mappings == nil {
				return migrate.ErrNoPool
			}
			moved, err := op.Mappings.CreateIgnoringConflicts(ctx, mappings)
			if err != nil {
				return err
			}
			op.Logger.Info(fmt.Sprintf("%d rows moved to %s", moved, externalmap.Table))
			return nil
		},
		Downgrade: func(ctx context.Context, op *migrate.Op) error {
			_, err := op.SQL.Exec(ctx, "DELETE FROM ? WHERE object_type = ? AND external_type = ?",
				bun.Ident(externalmap.Table), cadObjectType, externalmap.TypeCustomAttributeDefinition)
			return err
		},
	}
}

const evidencesDDL = `CREATE TABLE IF NOT EXISTS evidences (
	id {{ .PK }},
	title VARCHAR(250) NOT NULL,
	link VARCHAR(250) NOT NULL,
	description {{ .Text }} NULL,
	source_gdrive_id VARCHAR(250) NOT NULL DEFAULT '',
	gdrive_id VARCHAR(250) NOT NULL DEFAULT '',
	document_type {{ enum "document_type" "URL" "EVIDENCE" "REFERENCE_URL" }} NOT NULL DEFAULT 'URL',
	status VARCHAR(250) NOT NULL DEFAULT 'Active',
	last_deprecated_date {{ .DateTime }} NULL,
	slug VARCHAR(250) NULL,
	modified_by_id INTEGER NULL,
	context_id INTEGER NULL,
	created_at {{ .DateTime }} NOT NULL,
	updated_at {{ .DateTime }} NOT NULL
)`

func evidences() migrate.Episode {
	return migrate.Episode{
		Revision:    RevEvidences,
		Description: "evidences table",
		Upgrade: func(ctx context.Context, op *migrate.Op) error {
			if err := op.SQL.ExecTemplate(ctx, evidencesTable, evidencesDDL); err != nil {
				return err
			}
			return op.SQL.AddUniqueConstraint(ctx, evidencesTable, uqEvidenceTitle, "title")
		},
		Downgrade: func(ctx context.Context, op *migrate.Op) error {
			if err := op.SQL.DropUniqueConstraint(ctx, evidencesTable, uqEvidenceTitle); err != nil {
				return err
			}
			return op.SQL.DropTable(ctx, evidencesTable)
		},
	}
}
