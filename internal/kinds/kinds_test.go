package kinds_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/goliatone/go-mdmigrate/internal/kinds"
	"github.com/goliatone/go-mdmigrate/internal/validation"
)

func TestDefaultRegistry_Groups(t *testing.T) {
	scope := kinds.ScopeKinds()
	if len(scope) != 15 {
		t.Fatalf("expected 15 scope kinds, got %d", len(scope))
	}
	five := kinds.FiveObjKinds()
	var names []string
	for _, kind := range five {
		names = append(names, kind.ObjectType)
	}
	if !slices.Equal(names, []string{"Contract", "Policy", "Objective", "Requirement", "Threat"}) {
		t.Fatalf("unexpected 5OBJ kinds %v", names)
	}
	if got := len(kinds.ExternalKinds()); got != 20 {
		t.Fatalf("expected 20 external kinds, got %d", got)
	}
}

func TestLookup_DefaultsColumns(t *testing.T) {
	kind, ok := kinds.Lookup("Objective")
	if !ok {
		t.Fatalf("expected Objective")
	}
	if kind.Table != "objectives" || kind.DefinitionType != "objective" {
		t.Fatalf("unexpected kind %+v", kind)
	}
	if !slices.Equal(kind.Columns, []string{"description", "notes", "test_plan"}) {
		t.Fatalf("unexpected columns %v", kind.Columns)
	}

	kind.Columns[0] = "mutated"
	again, _ := kinds.Lookup("Objective")
	if again.Columns[0] != "description" {
		t.Fatalf("registry must not be mutable through lookups")
	}

	if _, ok := kinds.Lookup("Widget"); ok {
		t.Fatalf("unexpected kind Widget")
	}
}

func TestProcessAndSystemShareTable(t *testing.T) {
	process, _ := kinds.Lookup("Process")
	system, _ := kinds.Lookup("System")
	if process.Table != "systems" || system.Table != "systems" {
		t.Fatalf("expected both kinds on systems, got %q and %q", process.Table, system.Table)
	}
	if !process.SharedTable || !system.SharedTable {
		t.Fatalf("shared table must be flagged")
	}
	tables := kinds.Tables(kinds.ScopeKinds())
	if len(tables) != 14 {
		t.Fatalf("expected 14 distinct scope tables, got %d", len(tables))
	}
}

func TestParse_RejectsInvalidDescriptors(t *testing.T) {
	cases := map[string]string{
		"unknown group":  `{"kinds":[{"object_type":"Foo","definition_type":"foo","table":"foos","group":"other"}]}`,
		"bad table":      `{"kinds":[{"object_type":"Foo","definition_type":"foo","table":"Foos","group":"scope"}]}`,
		"missing table":  `{"kinds":[{"object_type":"Foo","definition_type":"foo","group":"scope"}]}`,
		"empty document": `{"kinds":[]}`,
		"not json":       `{`,
	}
	for name, raw := range cases {
		if _, err := kinds.Parse([]byte(raw)); !errors.Is(err, validation.ErrSchemaValidation) {
			t.Fatalf("%s: expected schema validation error, got %v", name, err)
		}
	}

	dup := `{"kinds":[
		{"object_type":"Foo","definition_type":"foo","table":"foos","group":"scope"},
		{"object_type":"Foo","definition_type":"foo","table":"foos","group":"scope"}]}`
	if _, err := kinds.Parse([]byte(dup)); err == nil {
		t.Fatalf("expected duplicate error")
	}
}

func TestParse_CustomColumns(t *testing.T) {
	reg, err := kinds.Parse([]byte(`{"kinds":[{"object_type":"Foo","definition_type":"foo","table":"foos","group":"fiveobj","columns":["body"]}]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	foo, ok := reg.Lookup("Foo")
	if !ok || !slices.Equal(foo.Columns, []string{"body"}) {
		t.Fatalf("unexpected kind %+v", foo)
	}
	if got := reg.Group(kinds.GroupScope); len(got) != 0 {
		t.Fatalf("expected no scope kinds, got %v", got)
	}
}
