package sqlops

import (
	"context"

	"github.com/uptrace/bun"
)

// HasTable reports whether table exists in the current schema.
func (o *Ops) HasTable(ctx context.Context, table string) (bool, error) {
	var query string
	switch o.dialect {
	case Postgres:
		query = "SELECT count(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?"
	case MySQL:
		query = "SELECT count(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?"
	default:
		query = "SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
	}
	return o.exists(ctx, query, table)
}

// HasColumn reports whether table carries column.
func (o *Ops) HasColumn(ctx context.Context, table, column string) (bool, error) {
	var query string
	switch o.dialect {
	case Postgres:
		query = "SELECT count(*) FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = ? AND column_name = ?"
	case MySQL:
		query = "SELECT count(*) FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ? AND column_name = ?"
	default:
		query = "SELECT count(*) FROM pragma_table_info(?) WHERE name = ?"
	}
	return o.exists(ctx, query, table, column)
}

// HasIndex reports whether an index with the physical name exists on table.
func (o *Ops) HasIndex(ctx context.Context, table, index string) (bool, error) {
	switch o.dialect {
	case Postgres:
		return o.exists(ctx, "SELECT count(*) FROM pg_indexes WHERE schemaname = current_schema() AND tablename = ? AND indexname = ?", table, index)
	case MySQL:
		return o.exists(ctx, "SELECT count(*) FROM information_schema.statistics WHERE table_schema = DATABASE() AND table_name = ? AND index_name = ?", table, index)
	default:
		return o.exists(ctx, "SELECT count(*) FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND name = ?", table, index)
	}
}

func (o *Ops) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var count int
	if err := o.db.NewRaw(query, args...).Scan(ctx, &count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// AddColumn appends column to table unless it is already there. definition
// is the portable type clause, e.g. `INTEGER NULL`.
func (o *Ops) AddColumn(ctx context.Context, table, column, definition string) error {
	ok, err := o.HasColumn(ctx, table, column)
	if err != nil || ok {
		return err
	}
	_, err = o.Exec(ctx, "ALTER TABLE ? ADD COLUMN ? "+definition, bun.Ident(table), bun.Ident(column))
	return err
}

// DropColumn removes column from table when present.
func (o *Ops) DropColumn(ctx context.Context, table, column string) error {
	ok, err := o.HasColumn(ctx, table, column)
	if err != nil || !ok {
		return err
	}
	_, err = o.Exec(ctx, "ALTER TABLE ? DROP COLUMN ?", bun.Ident(table), bun.Ident(column))
	return err
}

// AddUniqueConstraint creates the unique index backing constraint name on
// table unless it already exists.
func (o *Ops) AddUniqueConstraint(ctx context.Context, table, name string, columns ...string) error {
	index := o.ConstraintName(table, name)
	ok, err := o.HasIndex(ctx, table, index)
	if err != nil || ok {
		return err
	}
	list, identArgs := identList(columns)
	args := append([]any{bun.Ident(index), bun.Ident(table)}, identArgs...)
	_, err = o.Exec(ctx, "CREATE UNIQUE INDEX ? ON ? ("+list+")", args...)
	return err
}

// DropUniqueConstraint removes constraint name from table when present.
func (o *Ops) DropUniqueConstraint(ctx context.Context, table, name string) error {
	index := o.ConstraintName(table, name)
	ok, err := o.HasIndex(ctx, table, index)
	if err != nil || !ok {
		return err
	}
	if o.dialect == MySQL {
		_, err = o.Exec(ctx, "DROP INDEX ? ON ?", bun.Ident(index), bun.Ident(table))
		return err
	}
	_, err = o.Exec(ctx, "DROP INDEX ?", bun.Ident(index))
	return err
}

// DropTable drops table when present.
func (o *Ops) DropTable(ctx context.Context, table string) error {
	_, err := o.Exec(ctx, "DROP TABLE IF EXISTS ?", bun.Ident(table))
	return err
}
