// Package schema loads the declarative field catalog that drives table
// creation and merge propagation. The catalog is read once at startup
// and treated as immutable for the rest of the run.
package schema

import (
	"fmt"
	"regexp"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/agentic-research/photocat/api"
)

// Storage types accepted by the catalog. Anything undeclared is text.
const (
	TypeText    = "text"
	TypeInteger = "integer"
)

// validName keeps field names safe to splice into SQL identifiers.
var validName = regexp.MustCompile(`(?i)^[a-z_][a-z0-9_]*$`)

// Registry is the loaded field catalog: declaration order preserved,
// lookup by name.
type Registry struct {
	fields []api.Field
	byName map[string]api.Field
}

// Load reads the catalog from an HCL file. A missing or malformed file
// is a startup failure.
func Load(path string) (*Registry, error) {
	var cat api.Catalog
	if err := hclsimple.DecodeFile(path, nil, &cat); err != nil {
		return nil, fmt.Errorf("load field catalog %s: %w", path, err)
	}
	reg, err := New(cat)
	if err != nil {
		return nil, fmt.Errorf("field catalog %s: %w", path, err)
	}
	return reg, nil
}

// Parse decodes a catalog from an in-memory HCL document. The filename
// is used for diagnostics and syntax selection, so it must carry a
// .hcl extension.
func Parse(filename string, src []byte) (*Registry, error) {
	var cat api.Catalog
	if err := hclsimple.Decode(filename, src, nil, &cat); err != nil {
		return nil, fmt.Errorf("parse field catalog %s: %w", filename, err)
	}
	reg, err := New(cat)
	if err != nil {
		return nil, fmt.Errorf("field catalog %s: %w", filename, err)
	}
	return reg, nil
}

// New validates a decoded catalog and builds the registry.
func New(cat api.Catalog) (*Registry, error) {
	r := &Registry{byName: make(map[string]api.Field, len(cat.Fields))}
	for _, f := range cat.Fields {
		if !validName.MatchString(f.Name) {
			return nil, fmt.Errorf("invalid field name %q", f.Name)
		}
		if _, dup := r.byName[f.Name]; dup {
			return nil, fmt.Errorf("duplicate field %q", f.Name)
		}
		switch f.Type {
		case "":
			f.Type = TypeText
		case TypeText, TypeInteger:
		default:
			return nil, fmt.Errorf("field %q: unknown type %q", f.Name, f.Type)
		}
		r.fields = append(r.fields, f)
		r.byName[f.Name] = f
	}
	return r, nil
}

// Names returns the field names in declaration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// Lookup returns the declaration for a field, if present.
func (r *Registry) Lookup(name string) (api.Field, bool) {
	f, ok := r.byName[name]
	return f, ok
}

// Type returns the storage type for a field. Fields the catalog does
// not declare default to text.
func (r *Registry) Type(name string) string {
	if f, ok := r.byName[name]; ok {
		return f.Type
	}
	return TypeText
}

// CopyFields returns the names of all fields flagged for copy-on-merge,
// in declaration order.
func (r *Registry) CopyFields() []string {
	var names []string
	for _, f := range r.fields {
		if f.Copy {
			names = append(names, f.Name)
		}
	}
	return names
}
