package table

import "gotlf/domain/core"

// ColumnSpec declares one column of a dataset schema
type ColumnSpec struct {
	Name     string `json:"name"`
	Type     Type   `json:"type"`
	Required bool   `json:"required"`
}

// Schema is the explicit, versioned contract for one dataset kind:
// a mapping of column name to semantic type, validated at load time so
// silent type-coercion problems surface as early schema errors.
type Schema struct {
	Dataset string       `json:"dataset"`
	Version string       `json:"version"`
	Columns []ColumnSpec `json:"columns"`
}

// Required returns the names of required columns
func (s Schema) Required() []string {
	var names []string
	for _, c := range s.Columns {
		if c.Required {
			names = append(names, c.Name)
		}
	}
	return names
}

// Spec returns the spec for the named column, if declared
func (s Schema) Spec(name string) (ColumnSpec, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSpec{}, false
}

// Validate checks a loaded table against the schema. Every required column
// must be present with the declared semantic type. Undeclared extra columns
// are permitted; mistyped or absent required columns are ErrSchemaMismatch.
func (s Schema) Validate(t *Table) error {
	for _, spec := range s.Columns {
		col, err := t.Column(spec.Name)
		if err != nil {
			if spec.Required {
				return core.NewSchemaMismatchError(s.Dataset, spec.Name, "required column is missing")
			}
			continue
		}
		if col.Type != spec.Type {
			return core.NewSchemaMismatchError(s.Dataset, spec.Name,
				"expected type "+string(spec.Type)+", got "+string(col.Type))
		}
	}
	return nil
}
