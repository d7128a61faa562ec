package sqlops

import (
	"context"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// Dialect identifies the SQL flavour a helper has to emit.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

// DialectOf resolves the flavour from the bun dialect attached to db.
// Unknown dialects are treated as SQLite.
func DialectOf(db bun.IDB) Dialect {
	if db == nil {
		return SQLite
	}
	switch db.Dialect().Name() {
	case dialect.PG:
		return Postgres
	case dialect.MySQL:
		return MySQL
	default:
		return SQLite
	}
}

// Ops bundles the dialect-aware statements the episodes issue against one
// connection or transaction.
type Ops struct {
	db      bun.IDB
	dialect Dialect
}

// New binds helpers to db.
func New(db bun.IDB) *Ops {
	return &Ops{db: db, dialect: DialectOf(db)}
}

// DB returns the bound connection.
func (o *Ops) DB() bun.IDB {
	return o.db
}

// Dialect returns the flavour in use.
func (o *Ops) Dialect() Dialect {
	return o.dialect
}

// RegexOperator returns the infix operator matching a column against a
// regular expression.
func (o *Ops) RegexOperator() string {
	if o.dialect == Postgres {
		return "~"
	}
	return "REGEXP"
}

// MatchAny builds `c1 OP ? OR c2 OP ? ...` for the given columns together
// with its arguments.
func (o *Ops) MatchAny(pattern string, columns ...string) (string, []any) {
	parts := make([]string, 0, len(columns))
	args := make([]any, 0, 2*len(columns))
	for _, column := range columns {
		parts = append(parts, "? "+o.RegexOperator()+" ?")
		args = append(args, bun.Ident(column), pattern)
	}
	return strings.Join(parts, " OR "), args
}

// ConstraintName returns the physical index name backing a named unique
// constraint. MySQL scopes index names per table so the name is kept as
// given; SQLite and Postgres share one namespace per schema and get the
// table prefix.
func (o *Ops) ConstraintName(table, name string) string {
	if o.dialect == MySQL {
		return name
	}
	return table + "_" + name
}

// Exec runs a statement with bun placeholder formatting.
func (o *Ops) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := o.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return affected, nil
}

// InsertIgnoreSelect runs `INSERT ... SELECT` dropping rows that collide with
// a key. source is the SELECT statement and may carry placeholders.
func (o *Ops) InsertIgnoreSelect(ctx context.Context, table string, columns []string, source string, args ...any) (int64, error) {
	list, identArgs := identList(columns)
	var query string
	switch o.dialect {
	case MySQL:
		query = "INSERT IGNORE INTO ? (" + list + ") " + source
	case Postgres:
		query = "INSERT INTO ? (" + list + ") " + source + " ON CONFLICT DO NOTHING"
	default:
		query = "INSERT OR IGNORE INTO ? (" + list + ") " + source
	}
	all := make([]any, 0, 1+len(identArgs)+len(args))
	all = append(all, bun.Ident(table))
	all = append(all, identArgs...)
	all = append(all, args...)
	return o.Exec(ctx, query, all...)
}

func identList(columns []string) (string, []any) {
	marks := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, column := range columns {
		marks[i] = "?"
		args[i] = bun.Ident(column)
	}
	return strings.Join(marks, ", "), args
}
