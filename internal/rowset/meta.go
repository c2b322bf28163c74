package rowset

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/mathsigit/kudu/internal/types"
)

// File names within a rowset directory.
const (
	MetaFileName   = "meta.toml"
	FilterFileName = "bloom.bf"

	// ColumnFileSuffix is appended to a column name to form its file name.
	ColumnFileSuffix = ".cf"
)

// ColumnFileName returns the file name of a column within a rowset directory.
func ColumnFileName(col string) string { return col + ColumnFileSuffix }

// MetaColumn describes one column in the metadata file.
type MetaColumn struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
}

// Meta is the persisted description of one rowset generation.
type Meta struct {
	ID      uuid.UUID    `toml:"id"`
	Rows    int          `toml:"rows"`
	Key     string       `toml:"key"`
	Columns []MetaColumn `toml:"columns"`
}

// Schema reconstructs the rowset schema from the metadata.
func (m *Meta) Schema() (*Schema, error) {
	cols := make([]ColumnDef, len(m.Columns))
	for i, mc := range m.Columns {
		dt, err := types.ParseDataType(mc.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: column %q: %v", ErrCorruption, mc.Name, err)
		}
		cols[i] = ColumnDef{Name: mc.Name, DataType: dt}
	}
	s, err := NewSchema(cols)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruption, err)
	}
	if s.KeyColumn().Name != m.Key {
		return nil, fmt.Errorf("%w: key %q is not the first column", ErrCorruption, m.Key)
	}
	return s, nil
}

// WriteMeta persists the metadata file into dir.
func WriteMeta(dir string, m *Meta) error {
	f, err := os.Create(filepath.Join(dir, MetaFileName))
	if err != nil {
		return fmt.Errorf("creating %s: %w", MetaFileName, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(m); err != nil {
		return fmt.Errorf("encoding %s: %w", MetaFileName, err)
	}
	return nil
}

// ReadMeta loads the metadata file from dir.
func ReadMeta(dir string) (*Meta, error) {
	var m Meta
	if _, err := toml.DecodeFile(filepath.Join(dir, MetaFileName), &m); err != nil {
		return nil, fmt.Errorf("reading %s: %w", MetaFileName, err)
	}
	return &m, nil
}
