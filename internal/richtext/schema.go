package richtext

import (
	"context"

	"github.com/goliatone/go-mdmigrate/internal/sqlops"
)

const externalCommentsDDL = `CREATE TABLE IF NOT EXISTS external_comments (
	id {{ .PK }},
	description {{ .Text }} NULL,
	assignee_type {{ .Text }} NULL,
	context_id INTEGER NULL,
	modified_by_id INTEGER NULL,
	created_at {{ .DateTime }} NOT NULL,
	updated_at {{ .DateTime }} NOT NULL
)`

// CreateExternalCommentsTable creates external_comments with the columns
// MoveToExternal copies.
func CreateExternalCommentsTable(ctx context.Context, ops *sqlops.Ops) error {
	return ops.ExecTemplate(ctx, ExternalCommentsTable, externalCommentsDDL)
}
