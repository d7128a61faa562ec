package richtext

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/goliatone/go-mdmigrate/internal/kinds"
	"github.com/goliatone/go-mdmigrate/internal/logging"
	"github.com/goliatone/go-mdmigrate/internal/markdown"
	"github.com/goliatone/go-mdmigrate/internal/migrate"
	"github.com/goliatone/go-mdmigrate/internal/revisionless"
	"github.com/uptrace/bun"
)

// Converter rewrites the rich-text columns of one kind from HTML to Markdown.
type Converter struct {
	kind kinds.Kind
}

// NewConverter returns a converter for kind. Kinds without columns get the
// default rich-text columns.
func NewConverter(kind kinds.Kind) *Converter {
	if len(kind.Columns) == 0 {
		kind.Columns = append([]string(nil), kinds.DefaultColumns...)
	}
	return &Converter{kind: kind}
}

// Kind returns the kind being converted.
func (c *Converter) Kind() kinds.Kind {
	return c.kind
}

type pendingRow struct {
	id     int64
	values []sql.NullString
}

// ConvertToMarkdown converts every row with markup in any configured column,
// stamps updated_at and records the ids as modified. It returns the ids it
// touched in no particular order.
func (c *Converter) ConvertToMarkdown(ctx context.Context, op *migrate.Op) ([]int64, error) {
	rows, err := c.selectPending(ctx, op)
	if err != nil {
		return nil, err
	}

	now := op.Now()
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		set := make([]string, 0, len(c.kind.Columns)+1)
		args := []any{bun.Ident(c.kind.Table)}
		for i, column := range c.kind.Columns {
			value := row.values[i]
			if !value.Valid {
				continue
			}
			set = append(set, "? = ?")
			args = append(args, bun.Ident(column), markdown.FromHTML(value.String))
		}
		set = append(set, "updated_at = ?")
		args = append(args, now, row.id)

		if _, err := op.DB.ExecContext(ctx, "UPDATE ? SET "+strings.Join(set, ", ")+" WHERE id = ?", args...); err != nil {
			return nil, err
		}
		ids = append(ids, row.id)
	}

	if err := op.MarkBulk(ctx, ids, c.kind.ObjectType, revisionless.Modified); err != nil {
		return nil, err
	}
	logging.WithKind(op.RichTextLogger(), c.kind.ObjectType, c.kind.Table).
		Info(fmt.Sprintf("%d rows moved to %s", len(ids), c.kind.Table))
	return ids, nil
}

func (c *Converter) selectPending(ctx context.Context, op *migrate.Op) ([]pendingRow, error) {
	where, whereArgs := op.SQL.MatchAny(markdown.TagExpression, c.kind.Columns...)
	cols := make([]string, len(c.kind.Columns))
	args := make([]any, 0, len(c.kind.Columns)+1+len(whereArgs))
	for i, column := range c.kind.Columns {
		cols[i] = "?"
		args = append(args, bun.Ident(column))
	}
	args = append(args, bun.Ident(c.kind.Table))
	args = append(args, whereArgs...)

	rows, err := op.DB.QueryContext(ctx, "SELECT id, "+strings.Join(cols, ", ")+" FROM ? WHERE "+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pendingRow
	for rows.Next() {
		row := pendingRow{values: make([]sql.NullString, len(c.kind.Columns))}
		dest := make([]any, 0, len(row.values)+1)
		dest = append(dest, &row.id)
		for i := range row.values {
			dest = append(dest, &row.values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ConvertAll runs a converter per kind and returns the touched ids keyed by
// object type.
func ConvertAll(ctx context.Context, op *migrate.Op, list []kinds.Kind) (map[string][]int64, error) {
	touched := make(map[string][]int64, len(list))
	for _, kind := range list {
		ids, err := NewConverter(kind).ConvertToMarkdown(ctx, op)
		if err != nil {
			return nil, err
		}
		touched[kind.ObjectType] = ids
	}
	return touched, nil
}
