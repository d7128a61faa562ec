package sqlops

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
)

// DialectTemplate carries the type fragments DDL templates interpolate.
type DialectTemplate struct {
	Dialect  Dialect
	PK       string
	DateTime string
	Text     string
}

var dialectTemplates = map[Dialect]DialectTemplate{
	SQLite: {
		Dialect:  SQLite,
		PK:       "INTEGER PRIMARY KEY AUTOINCREMENT",
		DateTime: "DATETIME",
		Text:     "TEXT",
	},
	Postgres: {
		Dialect:  Postgres,
		PK:       "SERIAL PRIMARY KEY",
		DateTime: "TIMESTAMP",
		Text:     "TEXT",
	},
	MySQL: {
		Dialect:  MySQL,
		PK:       "INT NOT NULL AUTO_INCREMENT PRIMARY KEY",
		DateTime: "DATETIME",
		Text:     "TEXT",
	},
}

// Template returns the fragments for the bound dialect.
func (o *Ops) Template() DialectTemplate {
	return dialectTemplates[o.dialect]
}

// Render expands a DDL template. Besides the DialectTemplate fields the
// template can call `enum "column" "A" "B"`, which yields a MySQL ENUM or a
// VARCHAR guarded by a CHECK constraint elsewhere.
func (o *Ops) Render(name, ddl string) (string, error) {
	return o.RenderData(name, ddl, o.Template())
}

// RenderData expands ddl against data, which usually embeds the
// DialectTemplate returned by Template.
func (o *Ops) RenderData(name, ddl string, data any) (string, error) {
	tmpl, err := template.New(name).Funcs(template.FuncMap{
		"enum": o.enumType,
	}).Parse(ddl)
	if err != nil {
		return "", fmt.Errorf("sqlops: parse %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("sqlops: render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// ExecTemplate renders ddl and runs every `;`-separated statement in order.
func (o *Ops) ExecTemplate(ctx context.Context, name, ddl string) error {
	rendered, err := o.Render(name, ddl)
	if err != nil {
		return err
	}
	for _, stmt := range strings.Split(rendered, ";") {
		if stmt = strings.TrimSpace(stmt); stmt == "" {
			continue
		}
		if _, err := o.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (o *Ops) enumType(column string, values ...string) string {
	quoted := make([]string, len(values))
	width := 1
	for i, value := range values {
		quoted[i] = "'" + strings.ReplaceAll(value, "'", "''") + "'"
		width = max(width, len(value))
	}
	if o.dialect == MySQL {
		return "ENUM(" + strings.Join(quoted, ",") + ")"
	}
	return fmt.Sprintf("VARCHAR(%d) CHECK (%s IN (%s))", width, column, strings.Join(quoted, ","))
}
