package kinds

import (
	"embed"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/goliatone/go-mdmigrate/internal/validation"
)

//go:embed descriptors/*.json
var descriptorFS embed.FS

// Group is the family a kind belongs to.
type Group string

const (
	GroupScope   Group = "scope"
	GroupFiveObj Group = "fiveobj"
)

// DefaultColumns are the rich-text columns converted when a descriptor
// names none.
var DefaultColumns = []string{"description", "notes", "test_plan"}

// Kind describes one business-object kind with rich-text columns.
type Kind struct {
	ObjectType     string   `json:"object_type"`
	DefinitionType string   `json:"definition_type"`
	Table          string   `json:"table"`
	Group          Group    `json:"group"`
	Columns        []string `json:"columns,omitempty"`
	// SharedTable flags kinds stored in a table another kind also uses.
	// Process and System both live in systems.
	SharedTable bool `json:"shared_table,omitempty"`
}

type document struct {
	DefaultColumns []string `json:"default_columns"`
	Kinds          []Kind   `json:"kinds"`
}

// Registry is an immutable view over the kind descriptors.
type Registry struct {
	ordered []Kind
	byName  map[string]Kind
}

// Parse validates raw against the descriptor schema and builds a registry.
func Parse(raw []byte) (*Registry, error) {
	schema, err := descriptorSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.ValidateJSON(raw); err != nil {
		return nil, fmt.Errorf("kinds: descriptors: %w", err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("kinds: decode descriptors: %w", err)
	}
	defaults := doc.DefaultColumns
	if len(defaults) == 0 {
		defaults = DefaultColumns
	}

	reg := &Registry{byName: make(map[string]Kind, len(doc.Kinds))}
	for _, kind := range doc.Kinds {
		if _, dup := reg.byName[kind.ObjectType]; dup {
			return nil, fmt.Errorf("kinds: duplicate object type %q", kind.ObjectType)
		}
		if len(kind.Columns) == 0 {
			kind.Columns = slices.Clone(defaults)
		}
		reg.byName[kind.ObjectType] = kind
		reg.ordered = append(reg.ordered, kind)
	}
	return reg, nil
}

var schemaOnce = sync.OnceValues(func() (*validation.Schema, error) {
	raw, err := descriptorFS.ReadFile("descriptors/kinds.schema.json")
	if err != nil {
		return nil, err
	}
	return validation.Compile("kinds.schema.json", raw)
})

func descriptorSchema() (*validation.Schema, error) {
	return schemaOnce()
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	raw, err := descriptorFS.ReadFile("descriptors/kinds.json")
	if err != nil {
		panic(fmt.Sprintf("kinds: read embedded descriptors: %v", err))
	}
	reg, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return reg
})

// Default returns the registry built from the embedded descriptors.
func Default() *Registry {
	return defaultRegistry()
}

// All returns every kind in declaration order.
func (r *Registry) All() []Kind {
	return cloneKinds(r.ordered)
}

// Group returns the kinds of one family in declaration order.
func (r *Registry) Group(group Group) []Kind {
	var out []Kind
	for _, kind := range r.ordered {
		if kind.Group == group {
			out = append(out, kind.clone())
		}
	}
	return out
}

// Lookup finds a kind by object type.
func (r *Registry) Lookup(objectType string) (Kind, bool) {
	kind, ok := r.byName[objectType]
	if !ok {
		return Kind{}, false
	}
	return kind.clone(), true
}

// ScopeKinds returns the scope objects.
func ScopeKinds() []Kind { return Default().Group(GroupScope) }

// FiveObjKinds returns Contract, Policy, Objective, Requirement and Threat.
func FiveObjKinds() []Kind { return Default().Group(GroupFiveObj) }

// ExternalKinds returns the kinds exposed for external synchronisation:
// every scope and 5OBJ kind.
func ExternalKinds() []Kind { return Default().All() }

// Lookup finds a kind in the default registry.
func Lookup(objectType string) (Kind, bool) { return Default().Lookup(objectType) }

// Tables returns the distinct tables of kinds in first-seen order.
func Tables(list []Kind) []string {
	var out []string
	for _, kind := range list {
		if !slices.Contains(out, kind.Table) {
			out = append(out, kind.Table)
		}
	}
	return out
}

func (k Kind) clone() Kind {
	k.Columns = slices.Clone(k.Columns)
	return k
}

func cloneKinds(list []Kind) []Kind {
	out := make([]Kind, len(list))
	for i, kind := range list {
		out[i] = kind.clone()
	}
	return out
}
