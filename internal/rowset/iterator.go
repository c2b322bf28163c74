package rowset

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mathsigit/kudu/internal/cfile"
	"github.com/mathsigit/kudu/internal/column"
	"github.com/mathsigit/kudu/internal/logutil"
	"github.com/mathsigit/kudu/internal/types"
)

// Iterator is a single-pass batch cursor over a rowset projection. The
// consuming engine drives it through a fixed protocol:
//
//	Init, then repeatedly PrepareBatch / MaterializeColumn* / FinishBatch
//	until PrepareBatch returns 0.
//
// Columns are prepared lazily: a column's file is only read in batches
// where the engine actually materializes it. All methods must be called
// from one goroutine; concurrency happens across iterators, not within.
type Iterator struct {
	base       *BaseData
	projection []string
	mapping    []int // projection position -> schema column index

	colIters []*cfile.Iterator
	staged   []column.Column
	prepared []bool

	initted       bool
	rowCount      int
	curIdx        int // next unread ordinal
	preparedCount int

	// Inclusive ordinal bounds of the scan; [0, rowCount-1] without
	// pushdown. lowerBound <= curIdx <= upperBound+1 always holds, and
	// the iterator is exhausted exactly when curIdx > upperBound.
	lowerBound int
	upperBound int

	residual *ScanSpec
}

func newIterator(base *BaseData, projection []string, mapping []int) *Iterator {
	return &Iterator{
		base:       base,
		projection: projection,
		mapping:    mapping,
		rowCount:   base.rowCount,
	}
}

// Schema returns the projected column names in output order.
func (it *Iterator) Schema() []string { return it.projection }

func (it *Iterator) String() string {
	return "rowset iterator for " + it.base.String()
}

// Init binds the projection to the underlying column files, converts an
// eligible key-range predicate from spec into ordinal bounds, and readies
// the iterator for its first batch. spec may be nil. The given spec is not
// modified; the predicates left for row-level evaluation are available from
// Residual. Init must be called exactly once, before any other operation.
func (it *Iterator) Init(spec *ScanSpec) error {
	if it.initted {
		return fmt.Errorf("%w: Init called twice", ErrInvalidState)
	}

	it.lowerBound = 0
	it.upperBound = it.rowCount - 1
	it.residual = NewScanSpec()
	if spec != nil {
		if err := it.pushdownRangePredicate(spec); err != nil {
			return err
		}
	}

	it.colIters = make([]*cfile.Iterator, len(it.mapping))
	it.staged = make([]column.Column, len(it.mapping))
	it.prepared = make([]bool, len(it.mapping))
	for i, idx := range it.mapping {
		ci := it.base.readers[idx].NewIterator()
		if err := ci.SeekToOrdinal(it.lowerBound); err != nil {
			return fmt.Errorf("column %q: %w", it.projection[i], err)
		}
		it.colIters[i] = ci
	}

	it.curIdx = it.lowerBound
	it.initted = true
	return nil
}

// Residual returns the predicates Init left for row-level evaluation:
// everything from the scan spec except the one range predicate converted
// into ordinal bounds. Valid after Init.
func (it *Iterator) Residual() *ScanSpec { return it.residual }

// Bounds returns the inclusive ordinal range this iterator will yield.
// An empty range is reported as (lower > upper). Valid after Init.
func (it *Iterator) Bounds() (lower, upper int) {
	return it.lowerBound, it.upperBound
}

// pushdownRangePredicate looks for a predicate forming a range over the key
// column and converts it into ordinal bounds via binary search on the key
// column's value index. At most the first eligible predicate is consumed;
// any later range predicates on the key stay residual and are re-evaluated
// row-by-row by the engine. An empty resulting range is legal and yields
// zero rows.
func (it *Iterator) pushdownRangePredicate(spec *ScanSpec) error {
	key := it.base.schema.KeyColumn()
	it.residual = spec.Without(nil) // copy

	for _, p := range spec.Predicates() {
		if p.Column != key.Name || !p.IsBounded() {
			continue
		}
		lower, upper, ok, err := it.rangeToOrdinals(key.DataType, p)
		if err != nil {
			return err
		}
		if !ok {
			// The predicate's values cannot represent the key type;
			// leave it residual rather than guessing.
			continue
		}
		if lower > it.lowerBound {
			it.lowerBound = lower
		}
		if upper < it.upperBound {
			it.upperBound = upper
		}
		it.residual = spec.Without(p)
		logutil.Debug("pushed down key range predicate",
			zap.String("rowset", it.base.dir),
			zap.String("predicate", p.String()),
			zap.Int("lowerBound", it.lowerBound),
			zap.Int("upperBound", it.upperBound))
		return nil
	}
	return nil
}

// rangeToOrdinals maps a value range on the key column to inclusive
// ordinal bounds. Keys are unique and ascending, so exclusive bounds are a
// one-ordinal adjustment around the seek result.
func (it *Iterator) rangeToOrdinals(dt types.DataType, p *ColumnRangePredicate) (lower, upper int, ok bool, err error) {
	lower, upper = 0, it.rowCount-1
	keyIter := it.base.readers[0].NewIterator()

	if p.Lower != nil {
		v, coerced := types.CoerceValue(dt, p.Lower)
		if !coerced {
			return 0, 0, false, nil
		}
		ord, exact, serr := keyIter.SeekAtOrAfter(v)
		switch {
		case serr == nil:
			lower = ord
			if exact && !p.LowerInclusive {
				lower = ord + 1
			}
		case errorsIsNotFound(serr):
			lower = it.rowCount // every key is below the bound
		default:
			return 0, 0, false, fmt.Errorf("key column: %w", serr)
		}
	}

	if p.Upper != nil {
		v, coerced := types.CoerceValue(dt, p.Upper)
		if !coerced {
			return 0, 0, false, nil
		}
		ord, exact, serr := keyIter.SeekAtOrAfter(v)
		switch {
		case serr == nil:
			if exact && p.UpperInclusive {
				upper = ord
			} else {
				upper = ord - 1
			}
		case errorsIsNotFound(serr):
			upper = it.rowCount - 1 // every key is below the bound
		default:
			return 0, 0, false, fmt.Errorf("key column: %w", serr)
		}
	}

	return lower, upper, true, nil
}

// PrepareBatch opens a batch of up to requested rows and returns the actual
// batch size. 0 means the scan is exhausted. No column data is read yet.
func (it *Iterator) PrepareBatch(requested int) (int, error) {
	if !it.initted {
		return 0, fmt.Errorf("%w: PrepareBatch before Init", ErrInvalidState)
	}
	if it.preparedCount != 0 {
		return 0, fmt.Errorf("%w: PrepareBatch with a batch already open", ErrInvalidState)
	}
	if requested < 0 {
		return 0, fmt.Errorf("requested batch size %d is negative", requested)
	}
	remain := it.upperBound - it.curIdx + 1
	if remain <= 0 {
		return 0, nil
	}
	if requested > remain {
		requested = remain
	}
	it.preparedCount = requested
	return requested, nil
}

// InitializeSelectionVector returns an all-selected vector sized to the
// current batch. The engine refines it with residual predicates. Panics
// when no batch is open, matching the fail-fast contract of HasNext.
func (it *Iterator) InitializeSelectionVector() *SelectionVector {
	if !it.initted || it.preparedCount == 0 {
		panic("rowset: InitializeSelectionVector with no batch open")
	}
	return NewAllSelected(it.preparedCount)
}

// prepareColumn stages the current batch's values for one projected column,
// reading its file at most once per batch no matter how often the column is
// materialized.
func (it *Iterator) prepareColumn(idx int) error {
	if it.prepared[idx] {
		return nil
	}
	ci := it.colIters[idx]
	if err := ci.SeekToOrdinal(it.curIdx); err != nil {
		return fmt.Errorf("column %q: %w", it.projection[idx], err)
	}
	col, err := ci.Scan(it.preparedCount)
	if err != nil {
		return fmt.Errorf("column %q: %w", it.projection[idx], err)
	}
	it.staged[idx] = col
	it.prepared[idx] = true
	return nil
}

// MaterializeColumn copies the batch's values for one projected column into
// dst, preparing the column first if this batch has not touched it yet.
// It requires an open batch; calling it after FinishBatch (or before any
// PrepareBatch) is a protocol violation.
// Calling it again for the same column within a batch re-copies the staged
// values without further I/O. A read failure leaves the iterator unusable;
// it must be discarded.
func (it *Iterator) MaterializeColumn(idx int, dst column.Column) error {
	if !it.initted {
		return fmt.Errorf("%w: MaterializeColumn before Init", ErrInvalidState)
	}
	if it.preparedCount == 0 {
		return fmt.Errorf("%w: MaterializeColumn with no batch open", ErrInvalidState)
	}
	if idx < 0 || idx >= len(it.mapping) {
		return fmt.Errorf("column index %d out of projection range", idx)
	}
	want := it.base.schema.Columns[it.mapping[idx]].DataType
	if dst.DataType() != want {
		return fmt.Errorf("column %q: destination is %s, want %s",
			it.projection[idx], dst.DataType().Name(), want.Name())
	}
	if err := it.prepareColumn(idx); err != nil {
		return err
	}
	column.AppendColumn(dst, it.staged[idx])
	return nil
}

// FinishBatch closes the current batch, advancing the cursor past its rows
// and clearing all per-column staging.
func (it *Iterator) FinishBatch() error {
	if !it.initted {
		return fmt.Errorf("%w: FinishBatch before Init", ErrInvalidState)
	}
	it.curIdx += it.preparedCount
	it.preparedCount = 0
	for i := range it.prepared {
		it.prepared[i] = false
		it.staged[i] = nil
	}
	return nil
}

// HasNext reports whether any rows remain. Valid any time after Init.
func (it *Iterator) HasNext() bool {
	if !it.initted {
		panic("rowset: HasNext before Init")
	}
	return it.curIdx <= it.upperBound
}

// IOStatistics returns per-projected-column disk-read counters, in
// projection order. Purely observational.
func (it *Iterator) IOStatistics() []cfile.IOStatistics {
	stats := make([]cfile.IOStatistics, len(it.colIters))
	for i, ci := range it.colIters {
		if ci != nil {
			stats[i] = ci.IOStats()
		}
	}
	return stats
}
