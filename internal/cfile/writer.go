package cfile

import (
	"bytes"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/mathsigit/kudu/internal/column"
	"github.com/mathsigit/kudu/internal/compression"
	"github.com/mathsigit/kudu/internal/types"
)

// WriterOptions configure a column file writer.
type WriterOptions struct {
	// BlockRows is the number of values per data block (DefaultBlockRows if <= 0).
	BlockRows int
	// Codec compresses data blocks; LZ4 if nil.
	Codec compression.Codec
	// ValueIndex stores each block's first value in the index, enabling
	// ordinal search by value. Required for key columns; the data appended
	// to a value-indexed file must arrive in ascending order.
	ValueIndex bool
}

func (o WriterOptions) blockRows() int {
	if o.BlockRows <= 0 {
		return DefaultBlockRows
	}
	return o.BlockRows
}

func (o WriterOptions) codec() compression.Codec {
	if o.Codec == nil {
		return &compression.LZ4Codec{}
	}
	return o.Codec
}

// Writer streams one column into its on-disk file.
type Writer struct {
	path string
	f    *os.File
	dt   types.DataType
	opts WriterOptions

	pending   column.Column // values not yet flushed into a block
	marks     []Mark
	firstVals []types.Value
	offset    uint64
	numRows   uint64
	closed    bool
}

// NewWriter creates the file and prepares a writer for the given type.
func NewWriter(path string, dt types.DataType, opts WriterOptions) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating column file: %w", err)
	}
	return &Writer{
		path:    path,
		f:       f,
		dt:      dt,
		opts:    opts,
		pending: column.NewColumnWithCapacity(dt, opts.blockRows()),
	}, nil
}

// Append adds all values of col to the file, flushing full blocks as it goes.
func (w *Writer) Append(col column.Column) error {
	if col.DataType() != w.dt {
		return fmt.Errorf("appending %s values to %s column file", col.DataType().Name(), w.dt.Name())
	}
	column.AppendColumn(w.pending, col)
	for w.pending.Len() >= w.opts.blockRows() {
		if err := w.flushBlock(w.opts.blockRows()); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes the tail block, writes the index and footer, and closes the file.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if w.pending.Len() > 0 {
		if err := w.flushBlock(w.pending.Len()); err != nil {
			return err
		}
	}

	index, err := w.encodeIndex()
	if err != nil {
		return err
	}
	if _, err := w.f.Write(index); err != nil {
		return fmt.Errorf("writing block index: %w", err)
	}

	ft := footer{
		indexOffset: w.offset,
		indexSize:   uint32(len(index)),
		indexHash:   xxhash.Sum64(index),
		numRows:     w.numRows,
		numBlocks:   uint32(len(w.marks)),
		dataType:    uint8(w.dt),
		version:     FormatVersion,
	}
	if w.opts.ValueIndex {
		ft.flags |= flagValueIndex
	}
	if _, err := w.f.Write(ft.encode()); err != nil {
		return fmt.Errorf("writing footer: %w", err)
	}
	return w.f.Close()
}

func (w *Writer) flushBlock(n int) error {
	blockCol := w.pending.Slice(0, n)
	rest := w.pending.Slice(n, w.pending.Len())
	w.pending = rest

	encoded, err := column.EncodeColumn(blockCol)
	if err != nil {
		return fmt.Errorf("encoding block: %w", err)
	}
	frame, err := compression.CompressBlock(w.opts.codec(), encoded)
	if err != nil {
		return fmt.Errorf("compressing block: %w", err)
	}
	if _, err := w.f.Write(frame); err != nil {
		return fmt.Errorf("writing block: %w", err)
	}

	w.marks = append(w.marks, Mark{Offset: w.offset, Rows: uint32(n)})
	if w.opts.ValueIndex {
		w.firstVals = append(w.firstVals, blockCol.Value(0))
	}
	w.offset += uint64(len(frame))
	w.numRows += uint64(n)
	return nil
}

func (w *Writer) encodeIndex() ([]byte, error) {
	var buf bytes.Buffer
	for _, m := range w.marks {
		if err := column.WriteVarUInt(&buf, m.Offset); err != nil {
			return nil, err
		}
		if err := column.WriteVarUInt(&buf, uint64(m.Rows)); err != nil {
			return nil, err
		}
	}
	if w.opts.ValueIndex {
		for _, v := range w.firstVals {
			if err := column.EncodeValue(&buf, w.dt, v); err != nil {
				return nil, fmt.Errorf("encoding index value: %w", err)
			}
		}
	}
	return buf.Bytes(), nil
}
