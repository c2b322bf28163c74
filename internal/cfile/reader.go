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

// Reader gives random access to an immutable column file. A single Reader
// may back any number of concurrent iterators: all disk access goes through
// ReadAt and the in-memory block index never changes after Open.
type Reader struct {
	path      string
	f         *os.File
	fileSize  int64
	dt        types.DataType
	numRows   int
	marks     []Mark
	firstVals []types.Value // non-nil only for value-indexed files
	indexOff  uint64
}

// Open maps the file's footer and block index into memory.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening column file: %w", err)
	}
	r, err := newReader(path, f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func newReader(path string, f *os.File) (*Reader, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if st.Size() < footerSize {
		return nil, fmt.Errorf("%w: file is %d bytes, smaller than the footer", ErrCorruption, st.Size())
	}

	tail := make([]byte, footerSize)
	if _, err := f.ReadAt(tail, st.Size()-footerSize); err != nil {
		return nil, fmt.Errorf("reading footer: %w", err)
	}
	ft, err := decodeFooter(tail)
	if err != nil {
		return nil, err
	}

	index := make([]byte, ft.indexSize)
	if _, err := f.ReadAt(index, int64(ft.indexOffset)); err != nil {
		return nil, fmt.Errorf("reading block index: %w", err)
	}
	if xxhash.Sum64(index) != ft.indexHash {
		return nil, fmt.Errorf("%w: block index checksum mismatch", ErrCorruption)
	}

	r := &Reader{
		path:     path,
		f:        f,
		fileSize: st.Size(),
		dt:       types.DataType(ft.dataType),
		numRows:  int(ft.numRows),
		indexOff: ft.indexOffset,
	}
	if err := r.decodeIndex(index, ft); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) decodeIndex(index []byte, ft *footer) error {
	br := bytes.NewReader(index)
	total := 0
	r.marks = make([]Mark, ft.numBlocks)
	for i := range r.marks {
		off, err := column.ReadVarUInt(br)
		if err != nil {
			return fmt.Errorf("%w: truncated block index", ErrCorruption)
		}
		rows, err := column.ReadVarUInt(br)
		if err != nil {
			return fmt.Errorf("%w: truncated block index", ErrCorruption)
		}
		r.marks[i] = Mark{Offset: off, Rows: uint32(rows), FirstRow: total}
		total += int(rows)
	}
	if total != r.numRows {
		return fmt.Errorf("%w: blocks hold %d rows, footer says %d", ErrCorruption, total, r.numRows)
	}
	if ft.hasValueIndex() {
		r.firstVals = make([]types.Value, ft.numBlocks)
		for i := range r.firstVals {
			v, err := column.DecodeValue(br, r.dt)
			if err != nil {
				return fmt.Errorf("%w: truncated value index", ErrCorruption)
			}
			r.firstVals[i] = v
		}
	}
	return nil
}

// NumRows returns the row count recorded in the footer.
func (r *Reader) NumRows() int { return r.numRows }

// DataType returns the column's physical type.
func (r *Reader) DataType() types.DataType { return r.dt }

// OnDiskSize returns the file's total size in bytes.
func (r *Reader) OnDiskSize() int64 { return r.fileSize }

// HasValueIndex reports whether the file supports ordinal search by value.
func (r *Reader) HasValueIndex() bool { return r.firstVals != nil }

// NumBlocks returns the number of data blocks.
func (r *Reader) NumBlocks() int { return len(r.marks) }

// Marks returns the block index. The slice is shared; callers must not modify it.
func (r *Reader) Marks() []Mark { return r.marks }

// Close releases the underlying file. No iterator may be used afterwards.
func (r *Reader) Close() error { return r.f.Close() }

// NewIterator returns an independently positioned cursor over the file.
// Creating an iterator performs no I/O.
func (r *Reader) NewIterator() *Iterator {
	return &Iterator{r: r, blockIdx: -1}
}

// blockLength returns the byte length of block i's compressed frame.
func (r *Reader) blockLength(i int) int64 {
	end := r.indexOff
	if i+1 < len(r.marks) {
		end = r.marks[i+1].Offset
	}
	return int64(end - r.marks[i].Offset)
}

// readBlock fetches and decodes block i, charging the read to stats.
func (r *Reader) readBlock(i int, stats *IOStatistics) (column.Column, error) {
	m := r.marks[i]
	frame := make([]byte, r.blockLength(i))
	if _, err := r.f.ReadAt(frame, int64(m.Offset)); err != nil {
		return nil, fmt.Errorf("%s: reading block %d: %w", r.path, i, err)
	}
	stats.BlocksRead++
	stats.BytesRead += int64(len(frame))

	data, err := compression.DecompressBlock(frame)
	if err != nil {
		return nil, fmt.Errorf("%s: block %d: %w", r.path, i, err)
	}
	col, err := column.DecodeColumn(r.dt, data, int(m.Rows))
	if err != nil {
		return nil, fmt.Errorf("%s: decoding block %d: %w", r.path, i, err)
	}
	return col, nil
}

// blockForOrdinal returns the index of the block containing ordinal ord.
func (r *Reader) blockForOrdinal(ord int) int {
	lo, hi := 0, len(r.marks)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if r.marks[mid].FirstRow <= ord {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}
