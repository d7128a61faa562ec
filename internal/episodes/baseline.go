package episodes

import (
	"context"

	"github.com/goliatone/go-mdmigrate/internal/kinds"
	"github.com/goliatone/go-mdmigrate/internal/migrate"
	"github.com/goliatone/go-mdmigrate/internal/revisionless"
	"github.com/goliatone/go-mdmigrate/internal/sqlops"
)

// objectDDL is the shape shared by every business-object table.
const objectDDL = `CREATE TABLE IF NOT EXISTS {{ .Table }} (
	id {{ .PK }},
	title VARCHAR(250) NOT NULL,
	slug VARCHAR(250) NULL,
	description {{ .Text }} NULL,
	notes {{ .Text }} NULL,
	test_plan {{ .Text }} NULL,
	status VARCHAR(250) NULL,
	{{- if .Extra }}
	{{ .Extra }},
	{{- end }}
	modified_by_id INTEGER NULL,
	context_id INTEGER NULL,
	created_at {{ .DateTime }} NOT NULL,
	updated_at {{ .DateTime }} NOT NULL
)`

var legacyDDL = []struct {
	table string
	ddl   string
}{
	{"comments", `CREATE TABLE IF NOT EXISTS comments (
		id {{ .PK }},
		description {{ .Text }} NULL,
		assignee_type {{ .Text }} NULL,
		context_id INTEGER NULL,
		modified_by_id INTEGER NULL,
		created_at {{ .DateTime }} NOT NULL,
		updated_at {{ .DateTime }} NOT NULL
	)`},
	{"relationships", `CREATE TABLE IF NOT EXISTS relationships (
		id {{ .PK }},
		source_type VARCHAR(250) NOT NULL,
		source_id INTEGER NOT NULL,
		destination_type VARCHAR(250) NOT NULL,
		destination_id INTEGER NOT NULL,
		modified_by_id INTEGER NULL,
		context_id INTEGER NULL,
		created_at {{ .DateTime }} NOT NULL,
		updated_at {{ .DateTime }} NOT NULL
	)`},
	{"workflows", `CREATE TABLE IF NOT EXISTS workflows (
		id {{ .PK }},
		title VARCHAR(250) NOT NULL,
		status VARCHAR(250) NOT NULL,
		created_at {{ .DateTime }} NOT NULL,
		updated_at {{ .DateTime }} NOT NULL
	)`},
	{"cycles", `CREATE TABLE IF NOT EXISTS cycles (
		id {{ .PK }},
		workflow_id INTEGER NOT NULL,
		title VARCHAR(250) NOT NULL,
		created_at {{ .DateTime }} NOT NULL,
		updated_at {{ .DateTime }} NOT NULL
	)`},
	{"issuetracker_issues", `CREATE TABLE IF NOT EXISTS issuetracker_issues (
		id {{ .PK }},
		object_type VARCHAR(250) NOT NULL,
		object_id INTEGER NOT NULL,
		component_id VARCHAR(50) NULL,
		created_at {{ .DateTime }} NOT NULL,
		updated_at {{ .DateTime }} NOT NULL
	)`},
	{"custom_attribute_definitions", `CREATE TABLE IF NOT EXISTS custom_attribute_definitions (
		id {{ .PK }},
		title VARCHAR(250) NOT NULL,
		definition_type VARCHAR(250) NOT NULL,
		attribute_type VARCHAR(250) NOT NULL,
		created_at {{ .DateTime }} NOT NULL,
		updated_at {{ .DateTime }} NOT NULL
	)`},
	{"custom_attribute_values", `CREATE TABLE IF NOT EXISTS custom_attribute_values (
		id {{ .PK }},
		custom_attribute_id INTEGER NOT NULL,
		attributable_type VARCHAR(250) NOT NULL,
		attributable_id INTEGER NOT NULL,
		attribute_value {{ .Text }} NULL,
		attribute_object_id INTEGER NULL,
		created_at {{ .DateTime }} NOT NULL,
		updated_at {{ .DateTime }} NOT NULL
	)`},
}

type objectTable struct {
	sqlops.DialectTemplate
	Table string
	Extra string
}

// legacyObjectTables are the business-object tables present before the
// chain starts: every scope table, the 5OBJ tables except contracts and
// policies, and directives which holds those two until they are split out.
func legacyObjectTables() []string {
	tables := kinds.Tables(kinds.ScopeKinds())
	for _, table := range kinds.Tables(kinds.FiveObjKinds()) {
		if table == contractsTable || table == policiesTable {
			continue
		}
		tables = append(tables, table)
	}
	return tables
}

// CreateLegacySchema creates the tables the chain expects to find. Every
// statement is IF NOT EXISTS so an existing deployment is left untouched.
func CreateLegacySchema(ctx context.Context, ops *sqlops.Ops) error {
	for _, table := range legacyObjectTables() {
		if err := createObjectTable(ctx, ops, table, ""); err != nil {
			return err
		}
	}
	if err := createObjectTable(ctx, ops, directivesTable, "meta_kind VARCHAR(250) NOT NULL"); err != nil {
		return err
	}
	for _, legacy := range legacyDDL {
		if err := ops.ExecTemplate(ctx, legacy.table, legacy.ddl); err != nil {
			return err
		}
	}
	if err := ops.AddUniqueConstraint(ctx, "custom_attribute_values", uqCustomAttributeValue, "custom_attribute_id", "attributable_id"); err != nil {
		return err
	}
	return revisionless.CreateTables(ctx, ops)
}

func createObjectTable(ctx context.Context, ops *sqlops.Ops, table, extra string) error {
	rendered, err := renderObjectDDL(ops, table, extra)
	if err != nil {
		return err
	}
	_, err = ops.Exec(ctx, rendered)
	return err
}

func renderObjectDDL(ops *sqlops.Ops, table, extra string) (string, error) {
	data := objectTable{DialectTemplate: ops.Template(), Table: table, Extra: extra}
	return ops.RenderData(table, objectDDL, data)
}

func baseline() migrate.Episode {
	return migrate.Episode{
		Revision:    RevBaseline,
		Description: "legacy schema and revisionless log",
		Upgrade: func(ctx context.Context, op *migrate.Op) error {
			return CreateLegacySchema(ctx, op.SQL)
		},
	}
}
