package api

// Catalog is the root of the declarative field catalog.
// It lists every column of the observation table and drives both
// table creation and merge propagation.
type Catalog struct {
	Fields []Field `hcl:"field,block"`
}

// Field declares one column of the observation table.
type Field struct {
	// Name of the field, e.g. "image_path". Unique within the catalog.
	Name string `hcl:"name,label"`
	// Type is the storage type: "text" or "integer". Empty means text.
	Type string `hcl:"type,optional"`
	// Copy marks the field for propagation when two observations are
	// merged into one group: a missing value on either side is filled
	// in from the other.
	Copy bool `hcl:"copy,optional"`
}
