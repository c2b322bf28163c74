package rowset

import (
	"fmt"

	"github.com/mathsigit/kudu/internal/types"
)

// ColumnDef defines a column in a rowset schema.
type ColumnDef struct {
	Name     string
	DataType types.DataType
}

// Schema is the ordered column layout of a rowset. The first column is the
// sortable key: rows within a rowset are stored in ascending, unique key
// order, which is what makes ordinal search by key value possible.
type Schema struct {
	Columns []ColumnDef
}

// NewSchema validates the column list and returns a schema. The key column
// is Columns[0] and must be present.
func NewSchema(cols []ColumnDef) (*Schema, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("schema needs at least the key column")
	}
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if c.Name == "" {
			return nil, fmt.Errorf("schema has a column with an empty name")
		}
		if _, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return &Schema{Columns: cols}, nil
}

// KeyColumn returns the designated key column definition.
func (s *Schema) KeyColumn() ColumnDef { return s.Columns[0] }

// NumColumns returns the number of columns.
func (s *Schema) NumColumns() int { return len(s.Columns) }

// ColumnIndex returns the position of a column by name, or -1.
func (s *Schema) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// ColumnNames returns all column names in order.
func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// ProjectionMapping resolves a projection (ordered output column names) to
// underlying schema indices.
func (s *Schema) ProjectionMapping(projection []string) ([]int, error) {
	if len(projection) == 0 {
		return nil, fmt.Errorf("empty projection")
	}
	mapping := make([]int, len(projection))
	for i, name := range projection {
		idx := s.ColumnIndex(name)
		if idx < 0 {
			return nil, fmt.Errorf("projected column %q not in schema", name)
		}
		mapping[i] = idx
	}
	return mapping, nil
}
