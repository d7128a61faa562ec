package main

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-mdmigrate/internal/sqlops"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, strings.NewReader(stdin), &out)
	return out.String(), err
}

func TestPreview(t *testing.T) {
	out, err := runCLI(t, "<p>Hello <b>World</b></p>", "preview")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if out != "Hello **World**\n" {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = runCLI(t, "<i>done</i>", "preview", "--html")
	if err != nil {
		t.Fatalf("preview --html: %v", err)
	}
	if out != "<p><em>done</em></p>\n" {
		t.Fatalf("unexpected html %q", out)
	}
}

func TestUpgradeCurrentAndRefusedDowngrade(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "grc.db")
	flags := []string{"--driver", "sqlite3", "--dsn", dsn, "--log-level", "error"}

	out, err := runCLI(t, "", append([]string{"upgrade"}, flags...)...)
	if err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 17 || lines[16] != "applied 0017_drop_orphan_comment_edges" {
		t.Fatalf("unexpected upgrade output %q", out)
	}

	out, err = runCLI(t, "", append([]string{"current"}, flags...)...)
	if err != nil || strings.TrimSpace(out) != "0017_drop_orphan_comment_edges" {
		t.Fatalf("unexpected current %q %v", out, err)
	}

	for _, target := range [][]string{{"-1"}, {"--steps", "2"}, {"0016_inactivate_orphan_workflows"}} {
		_, err = runCLI(t, "", append(append([]string{"downgrade"}, target...), flags...)...)
		if code := exitCode(err); code != exitDowngradeRefuse {
			t.Fatalf("downgrade %v: expected exit code %d, got %d (%v)", target, exitDowngradeRefuse, code, err)
		}
	}

	out, err = runCLI(t, "", append([]string{"current"}, flags...)...)
	if err != nil || strings.TrimSpace(out) != "0017_drop_orphan_comment_edges" {
		t.Fatalf("refused downgrade moved the head: %q %v", out, err)
	}

	out, err = runCLI(t, "", append([]string{"history"}, flags...)...)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "* 0017_drop_orphan_comment_edges") || !strings.Contains(out, "0010_evidences  reversible") {
		t.Fatalf("unexpected history %q", out)
	}
}

func TestRelativeDowngrade(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "grc.db")
	flags := []string{"--dsn", dsn, "--log-level", "error"}

	if _, err := runCLI(t, "", append([]string{"upgrade", "0010_evidences"}, flags...)...); err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	out, err := runCLI(t, "", append([]string{"downgrade", "-1"}, flags...)...)
	if err != nil {
		t.Fatalf("downgrade -1: %v", err)
	}
	if strings.TrimSpace(out) != "reverted 0010_evidences" {
		t.Fatalf("unexpected downgrade output %q", out)
	}
	out, err = runCLI(t, "", append([]string{"current"}, flags...)...)
	if err != nil || strings.TrimSpace(out) != "0009_ca_external_mappings_backfill" {
		t.Fatalf("unexpected current %q %v", out, err)
	}

	if _, err := runCLI(t, "", append([]string{"downgrade", "base", "--steps", "1"}, flags...)...); exitCode(err) != exitFailure {
		t.Fatalf("expected a target together with --steps to fail, got %v", err)
	}
}

func TestHistoryMarkersAndMappings(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "grc.db")
	flags := []string{"--driver", "sqlite3", "--dsn", dsn, "--log-level", "error"}

	if _, err := runCLI(t, "", append([]string{"upgrade", "0008_ca_previous_id"}, flags...)...); err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	out, err := runCLI(t, "", append([]string{"history", "--markers"}, flags...)...)
	if err != nil || !strings.Contains(out, "no revisionless batches") {
		t.Fatalf("expected empty marker log, got %q %v", out, err)
	}

	db, err := sql.Open(sqlops.RegisterSQLite(), dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	seeded := time.Date(2017, 1, 2, 3, 4, 5, 0, time.UTC)
	for _, stmt := range []struct {
		query string
		args  []any
	}{
		{"INSERT INTO workflows (id, title, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)", []any{1, "w1", "Active", seeded, seeded}},
		{"INSERT INTO custom_attribute_definitions (id, title, definition_type, attribute_type, previous_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)", []any{7, "cad", "control", "Text", 70, seeded, seeded}},
	} {
		if _, err := db.Exec(stmt.query, stmt.args...); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	_ = db.Close()

	if _, err := runCLI(t, "", append([]string{"upgrade"}, flags...)...); err != nil {
		t.Fatalf("upgrade: %v", err)
	}

	out, err = runCLI(t, "", append([]string{"history", "--markers", "--type", "Workflow"}, flags...)...)
	if err != nil {
		t.Fatalf("history --markers: %v", err)
	}
	if !strings.Contains(out, "latest batch ") || !strings.Contains(out, "Workflow 1 modified batch=") {
		t.Fatalf("unexpected marker output %q", out)
	}
	if _, err := runCLI(t, "", append([]string{"history", "--markers", "--action", "archived"}, flags...)...); err == nil {
		t.Fatalf("expected unknown action to fail")
	}

	out, err = runCLI(t, "", append([]string{"mappings", "CustomAttributeDefinition", "7"}, flags...)...)
	if err != nil {
		t.Fatalf("mappings: %v", err)
	}
	if out != "custom_attribute_definition 70\n1 of 1 mappings\n" {
		t.Fatalf("unexpected mappings output %q", out)
	}
	if _, err := runCLI(t, "", append([]string{"mappings", "CustomAttributeDefinition", "x"}, flags...)...); err == nil {
		t.Fatalf("expected non-numeric id to fail")
	}
}

func TestRelativeTargets(t *testing.T) {
	got := relativeTargets([]string{"--dsn", "x.db", "downgrade", "-2", "--log-level", "error"})
	want := []string{"--dsn", "x.db", "downgrade", "--steps=2", "--log-level", "error"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("relativeTargets = %q, want %q", got, want)
	}
	if got := relativeTargets([]string{"upgrade", "-1"}); got[1] != "-1" {
		t.Fatalf("only downgrade targets are rewritten, got %q", got)
	}
}

func TestStampAndHeads(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "grc.db")
	flags := []string{"--dsn", dsn, "--log-level", "error"}

	if _, err := runCLI(t, "", append([]string{"stamp", "0005_external_mappings"}, flags...)...); err != nil {
		t.Fatalf("stamp: %v", err)
	}
	out, err := runCLI(t, "", append([]string{"current"}, flags...)...)
	if err != nil || strings.TrimSpace(out) != "0005_external_mappings" {
		t.Fatalf("unexpected current %q %v", out, err)
	}
	out, err = runCLI(t, "", append([]string{"heads"}, flags...)...)
	if err != nil || strings.TrimSpace(out) != "0017_drop_orphan_comment_edges" {
		t.Fatalf("unexpected heads %q %v", out, err)
	}
}

func TestUnknownRevisionFails(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "grc.db")
	_, err := runCLI(t, "", "stamp", "9999_missing", "--dsn", dsn, "--log-level", "error")
	if code := exitCode(err); code != exitFailure {
		t.Fatalf("expected exit code %d, got %d (%v)", exitFailure, code, err)
	}
}

func TestLoadConfig_Layers(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "grc-migrate.yaml")
	yaml := "database:\n  driver: postgres\n  dsn: postgres://grc@localhost/ggrc\nlogging:\n  provider: gologger\n  format: pretty\n"
	if err := os.WriteFile(file, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("GRC_MIGRATE_LOGGING_LEVEL", "debug")

	cfg, err := loadConfig(file, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.DSN != "postgres://grc@localhost/ggrc" {
		t.Fatalf("file values not applied: %+v", cfg.Database)
	}
	if cfg.Logging.Provider != "gologger" || cfg.Logging.Format != "pretty" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging %+v", cfg.Logging)
	}
	if cfg.Migrations.VersionTable != "migration_version" || cfg.Database.MaxOpenConns != 1 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"), nil); err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}
}
