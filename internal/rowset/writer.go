package rowset

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mathsigit/kudu/internal/bloomfile"
	"github.com/mathsigit/kudu/internal/cfile"
	"github.com/mathsigit/kudu/internal/column"
	"github.com/mathsigit/kudu/internal/compression"
	"github.com/mathsigit/kudu/internal/logutil"
	"github.com/mathsigit/kudu/internal/types"
)

// WriterOptions configure how a rowset is laid out on disk.
type WriterOptions struct {
	// BlockRows is the number of values per column-file data block.
	BlockRows int `toml:"block_rows"`
	// Codec names the block compression codec: "lz4" (default) or "none".
	Codec string `toml:"codec"`
	// Filter controls whether an existence filter is built over the keys.
	Filter bool `toml:"filter"`
}

// DefaultWriterOptions are the settings used when none are supplied.
func DefaultWriterOptions() WriterOptions {
	return WriterOptions{BlockRows: cfile.DefaultBlockRows, Codec: "lz4", Filter: true}
}

// Writer creates rowset directories from in-memory blocks.
type Writer struct {
	schema *Schema
	opts   WriterOptions
}

// NewWriter returns a writer for the given schema.
func NewWriter(schema *Schema, opts WriterOptions) *Writer {
	return &Writer{schema: schema, opts: opts}
}

// WriteRowset writes block as a new rowset directory at dir. The block must
// contain every schema column; it is sorted by the key column and keys must
// be unique. The directory is written under a temporary name and renamed
// into place, so a crashed write never leaves a half-visible rowset.
func (w *Writer) WriteRowset(dir string, block *column.Block) (*Meta, error) {
	codec, err := compression.CodecByName(w.opts.Codec)
	if err != nil {
		return nil, err
	}

	key := w.schema.KeyColumn()
	if err := block.SortByColumn(key.Name); err != nil {
		return nil, err
	}
	keyCol, _ := block.GetColumn(key.Name)
	for i := 1; i < keyCol.Len(); i++ {
		if types.CompareValues(key.DataType, keyCol.Value(i-1), keyCol.Value(i)) >= 0 {
			return nil, fmt.Errorf("duplicate key %v at row %d", keyCol.Value(i), i)
		}
	}

	tmpDir := dir + ".tmp"
	if err := os.MkdirAll(tmpDir, 0755); err != nil {
		return nil, fmt.Errorf("creating tmp dir: %w", err)
	}
	success := false
	defer func() {
		if !success {
			os.RemoveAll(tmpDir)
		}
	}()

	for i, colDef := range w.schema.Columns {
		col, ok := block.GetColumn(colDef.Name)
		if !ok {
			return nil, fmt.Errorf("column %q not found in block", colDef.Name)
		}
		if col.Len() != block.NumRows() {
			return nil, fmt.Errorf("column %q has %d rows, block has %d", colDef.Name, col.Len(), block.NumRows())
		}
		cw, err := cfile.NewWriter(filepath.Join(tmpDir, ColumnFileName(colDef.Name)), colDef.DataType, cfile.WriterOptions{
			BlockRows:  w.opts.BlockRows,
			Codec:      codec,
			ValueIndex: i == 0,
		})
		if err != nil {
			return nil, err
		}
		if err := cw.Append(col); err != nil {
			cw.Close()
			return nil, fmt.Errorf("writing column %q: %w", colDef.Name, err)
		}
		if err := cw.Close(); err != nil {
			return nil, fmt.Errorf("writing column %q: %w", colDef.Name, err)
		}
	}

	if w.opts.Filter {
		if err := w.writeFilter(tmpDir, key, keyCol); err != nil {
			return nil, err
		}
	}

	meta := &Meta{
		ID:   uuid.New(),
		Rows: block.NumRows(),
		Key:  key.Name,
	}
	for _, c := range w.schema.Columns {
		meta.Columns = append(meta.Columns, MetaColumn{Name: c.Name, Type: c.DataType.Name()})
	}
	if err := WriteMeta(tmpDir, meta); err != nil {
		return nil, err
	}

	if err := os.Rename(tmpDir, dir); err != nil {
		return nil, fmt.Errorf("renaming rowset dir: %w", err)
	}
	success = true

	logutil.Info("wrote rowset",
		zap.String("dir", dir),
		zap.String("id", meta.ID.String()),
		zap.Int("rows", meta.Rows),
		zap.Int("columns", len(meta.Columns)))
	return meta, nil
}

func (w *Writer) writeFilter(dir string, key ColumnDef, keyCol column.Column) error {
	hashes := make([]uint64, 0, keyCol.Len())
	for i := 0; i < keyCol.Len(); i++ {
		enc, err := column.EncodeValueBytes(key.DataType, keyCol.Value(i))
		if err != nil {
			return fmt.Errorf("encoding key at row %d: %w", i, err)
		}
		hashes = append(hashes, bloomfile.HashKey(enc))
	}
	if err := bloomfile.Write(filepath.Join(dir, FilterFileName), hashes); err != nil {
		return fmt.Errorf("writing existence filter: %w", err)
	}
	return nil
}
