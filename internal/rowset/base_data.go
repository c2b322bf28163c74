// Package rowset implements the read path for one generation of immutable,
// column-oriented row data: a set of per-column encoded files opened as a
// unit, with point lookups on the key column, an optional existence filter,
// and a batch iterator with key-range predicate pushdown.
package rowset

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mathsigit/kudu/internal/bloomfile"
	"github.com/mathsigit/kudu/internal/cfile"
	"github.com/mathsigit/kudu/internal/logutil"
)

// BaseData is the fixed set of opened column files making up one rowset
// generation. All column files hold the same number of rows, so ordinal
// positions line up across columns.
//
// The data is immutable once opened: any number of iterators and point
// lookups may run against one BaseData concurrently. Close belongs to the
// owning handle and must happen only after every iterator is done.
type BaseData struct {
	dir    string
	schema *Schema

	// readers[i] is non-nil iff column i is opened. OpenKeyColumns only
	// fills slot 0.
	readers []*cfile.Reader
	filter  *bloomfile.Reader

	meta     *Meta // non-nil when opened via OpenRowset
	rowCount int
	opened   bool
}

// OpenRowset reads a rowset directory's metadata, opens every column, and
// cross-checks the recorded row count against the column files.
func OpenRowset(dir string) (*BaseData, error) {
	meta, err := ReadMeta(dir)
	if err != nil {
		return nil, err
	}
	schema, err := meta.Schema()
	if err != nil {
		return nil, err
	}
	b := NewBaseData(dir, schema)
	b.meta = meta
	if err := b.OpenAllColumns(); err != nil {
		b.Close()
		return nil, err
	}
	if b.rowCount != meta.Rows {
		b.Close()
		return nil, fmt.Errorf("%w: metadata says %d rows, column files hold %d",
			ErrCorruption, meta.Rows, b.rowCount)
	}
	return b, nil
}

// NewBaseData returns an unopened handle on the rowset stored in dir.
func NewBaseData(dir string, schema *Schema) *BaseData {
	return &BaseData{
		dir:     dir,
		schema:  schema,
		readers: make([]*cfile.Reader, schema.NumColumns()),
	}
}

// Schema returns the rowset's schema.
func (b *BaseData) Schema() *Schema { return b.schema }

// Meta returns the rowset metadata when opened via OpenRowset, else nil.
func (b *BaseData) Meta() *Meta { return b.meta }

// Dir returns the rowset directory.
func (b *BaseData) Dir() string { return b.dir }

// ColumnReader returns the opened reader for the idx-th schema column, or
// nil if that column has not been opened.
func (b *BaseData) ColumnReader(idx int) *cfile.Reader { return b.readers[idx] }

func (b *BaseData) String() string {
	return "rowset base data in " + b.dir
}

// OpenAllColumns opens every schema column plus the existence filter when
// one is present. Row counts across columns must agree.
func (b *BaseData) OpenAllColumns() error {
	if err := b.openColumns(b.schema.NumColumns()); err != nil {
		return err
	}
	if err := b.openFilter(); err != nil {
		return err
	}
	logutil.Debug("opened rowset",
		zap.String("dir", b.dir),
		zap.Int("columns", b.schema.NumColumns()),
		zap.Int("rows", b.rowCount),
		zap.Bool("filter", b.filter != nil))
	return nil
}

// OpenKeyColumns opens only the key column, the cheap path for pure
// point-lookup use, plus the existence filter when present.
func (b *BaseData) OpenKeyColumns() error {
	if err := b.openColumns(1); err != nil {
		return err
	}
	return b.openFilter()
}

func (b *BaseData) openColumns(numCols int) error {
	for i := 0; i < numCols; i++ {
		if b.readers[i] != nil {
			continue
		}
		col := b.schema.Columns[i]
		r, err := cfile.Open(filepath.Join(b.dir, ColumnFileName(col.Name)))
		if err != nil {
			return fmt.Errorf("column %q: %w", col.Name, err)
		}
		if r.DataType() != col.DataType {
			r.Close()
			return fmt.Errorf("%w: column %q is %s on disk, schema says %s",
				ErrCorruption, col.Name, r.DataType().Name(), col.DataType.Name())
		}
		if b.opened && r.NumRows() != b.rowCount {
			r.Close()
			return fmt.Errorf("%w: column %q has %d rows, expected %d",
				ErrCorruption, col.Name, r.NumRows(), b.rowCount)
		}
		if !b.opened {
			b.rowCount = r.NumRows()
			b.opened = true
		}
		b.readers[i] = r
	}
	return nil
}

func (b *BaseData) openFilter() error {
	if b.filter != nil {
		return nil
	}
	path := filepath.Join(b.dir, FilterFileName)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("existence filter: %w", err)
	}
	f, err := bloomfile.Open(path)
	if err != nil {
		return fmt.Errorf("existence filter: %w", err)
	}
	b.filter = f
	return nil
}

// CountRows returns the shared row count.
func (b *BaseData) CountRows() (int, error) {
	if !b.opened {
		return 0, ErrNotOpened
	}
	return b.rowCount, nil
}

// EstimateOnDiskSize sums the opened columns' file sizes. Observational
// only; used by placement decisions, never for correctness.
func (b *BaseData) EstimateOnDiskSize() int64 {
	var total int64
	for _, r := range b.readers {
		if r != nil {
			total += r.OnDiskSize()
		}
	}
	return total
}

// FindRow binary-searches the key column for an exact key match and returns
// its ordinal. ErrNotFound is the normal negative result.
func (b *BaseData) FindRow(probe *KeyProbe) (int, error) {
	if !b.opened {
		return 0, ErrNotOpened
	}
	it := b.readers[0].NewIterator()
	ord, exact, err := it.SeekAtOrAfter(probe.Key())
	if err != nil {
		if errorsIsNotFound(err) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("key column: %w", err)
	}
	if !exact {
		return 0, ErrNotFound
	}
	return ord, nil
}

// CheckRowPresent answers whether the probe's key exists in this rowset.
// A loaded existence filter is consulted first: its negative answer is
// authoritative and skips the key-column search entirely. A positive (or
// missing filter) falls through to FindRow for the exact answer.
func (b *BaseData) CheckRowPresent(probe *KeyProbe) (bool, error) {
	if !b.opened {
		return false, ErrNotOpened
	}
	if b.filter != nil && !b.filter.MayContainHash(probe.Hash()) {
		return false, nil
	}
	_, err := b.FindRow(probe)
	if err == nil {
		return true, nil
	}
	if errorsIsNotFound(err) {
		return false, nil
	}
	return false, err
}

// NewIterator returns an uninitialized batch iterator over the projection.
// The iterator shares this BaseData; it must be Init-ed before any batch
// operation and discarded after one full scan.
func (b *BaseData) NewIterator(projection []string) (*Iterator, error) {
	if !b.opened {
		return nil, ErrNotOpened
	}
	mapping, err := b.schema.ProjectionMapping(projection)
	if err != nil {
		return nil, err
	}
	for i, idx := range mapping {
		if b.readers[idx] == nil {
			return nil, fmt.Errorf("%w: column %q not opened", ErrNotOpened, projection[i])
		}
	}
	return newIterator(b, projection, mapping), nil
}

// Close releases every opened column file. No iterator created from this
// BaseData may be used afterwards.
func (b *BaseData) Close() error {
	var firstErr error
	for i, r := range b.readers {
		if r == nil {
			continue
		}
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		b.readers[i] = nil
	}
	b.filter = nil
	b.opened = false
	return firstErr
}
