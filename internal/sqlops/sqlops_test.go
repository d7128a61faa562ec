package sqlops_test

import (
	"context"
	"strings"
	"testing"

	"github.com/goliatone/go-mdmigrate/internal/sqlops"
	"github.com/goliatone/go-mdmigrate/pkg/testsupport"
)

func newTestOps(t *testing.T) *sqlops.Ops {
	t.Helper()
	return sqlops.New(testsupport.NewBunDB(t))
}

func TestOps_RegexFilterOnSQLite(t *testing.T) {
	ctx := context.Background()
	ops := newTestOps(t)

	if _, err := ops.Exec(ctx, "CREATE TABLE docs (id INTEGER PRIMARY KEY, body TEXT, notes TEXT)"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := ops.Exec(ctx, "INSERT INTO docs (id, body, notes) VALUES (1, '<p>x</p>', NULL), (2, 'plain', NULL), (3, NULL, 'a</b>')"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	where, args := ops.MatchAny(`(<[a-zA-Z]+>)+|(</[a-zA-Z]+>)+`, "body", "notes")
	var ids []int64
	if err := ops.DB().NewRaw("SELECT id FROM docs WHERE "+where+" ORDER BY id", args...).Scan(ctx, &ids); err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Fatalf("unexpected matches %v", ids)
	}
}

func TestOps_DDLIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ops := newTestOps(t)

	if err := ops.ExecTemplate(ctx, "things", `CREATE TABLE IF NOT EXISTS things (
		id {{ .PK }},
		title VARCHAR(250) NOT NULL,
		kind {{ enum "kind" "URL" "EVIDENCE" }} NOT NULL,
		created_at {{ .DateTime }} NOT NULL
	)`); err != nil {
		t.Fatalf("create table: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := ops.AddColumn(ctx, "things", "external_id", "INTEGER NULL"); err != nil {
			t.Fatalf("add column pass %d: %v", i, err)
		}
		if err := ops.AddUniqueConstraint(ctx, "things", "uq_external_id", "external_id"); err != nil {
			t.Fatalf("add constraint pass %d: %v", i, err)
		}
	}

	if ok, err := ops.HasColumn(ctx, "things", "external_id"); err != nil || !ok {
		t.Fatalf("expected column, got %v %v", ok, err)
	}
	if ok, err := ops.HasIndex(ctx, "things", "things_uq_external_id"); err != nil || !ok {
		t.Fatalf("expected prefixed index, got %v %v", ok, err)
	}

	if _, err := ops.Exec(ctx, "INSERT INTO things (title, kind, created_at, external_id) VALUES ('a', 'URL', '2020-01-01 00:00:00', 1)"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := ops.Exec(ctx, "INSERT INTO things (title, kind, created_at, external_id) VALUES ('b', 'URL', '2020-01-01 00:00:00', 1)"); err == nil {
		t.Fatalf("expected unique violation")
	}
	if _, err := ops.Exec(ctx, "INSERT INTO things (title, kind, created_at) VALUES ('c', 'OTHER', '2020-01-01 00:00:00')"); err == nil {
		t.Fatalf("expected check violation for enum column")
	}

	if err := ops.DropUniqueConstraint(ctx, "things", "uq_external_id"); err != nil {
		t.Fatalf("drop constraint: %v", err)
	}
	if err := ops.DropUniqueConstraint(ctx, "things", "uq_external_id"); err != nil {
		t.Fatalf("drop constraint twice: %v", err)
	}
	if err := ops.DropColumn(ctx, "things", "external_id"); err != nil {
		t.Fatalf("drop column: %v", err)
	}
	if ok, _ := ops.HasColumn(ctx, "things", "external_id"); ok {
		t.Fatalf("column should be gone")
	}
}

func TestOps_InsertIgnoreSelect(t *testing.T) {
	ctx := context.Background()
	ops := newTestOps(t)

	if _, err := ops.Exec(ctx, "CREATE TABLE tags (name VARCHAR(50) PRIMARY KEY)"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := ops.Exec(ctx, "INSERT INTO tags (name) VALUES ('a')"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := ops.InsertIgnoreSelect(ctx, "tags", []string{"name"}, "SELECT ? UNION SELECT ?", "a", "b"); err != nil {
		t.Fatalf("insert ignore: %v", err)
	}
	var names []string
	if err := ops.DB().NewRaw("SELECT name FROM tags ORDER BY name").Scan(ctx, &names); err != nil {
		t.Fatalf("select: %v", err)
	}
	if strings.Join(names, ",") != "a,b" {
		t.Fatalf("unexpected rows %v", names)
	}
}

func TestOps_RenderPerDialect(t *testing.T) {
	ops := newTestOps(t)
	if ops.Dialect() != sqlops.SQLite || ops.RegexOperator() != "REGEXP" {
		t.Fatalf("unexpected dialect %s", ops.Dialect())
	}
	got, err := ops.Render("enum", `{{ enum "document_type" "URL" "EVIDENCE" "REFERENCE_URL" }}`)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "VARCHAR(13) CHECK (document_type IN ('URL','EVIDENCE','REFERENCE_URL'))" {
		t.Fatalf("unexpected enum fragment %q", got)
	}
	if name := ops.ConstraintName("contracts", "uq_external_id"); name != "contracts_uq_external_id" {
		t.Fatalf("unexpected constraint name %q", name)
	}
}
