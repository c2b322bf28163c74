package cfile

import (
	"fmt"
	"sort"

	"github.com/mathsigit/kudu/internal/column"
	"github.com/mathsigit/kudu/internal/types"
)

// Iterator is a private cursor over a shared Reader. It caches the most
// recently decoded block so consecutive reads within a block hit disk once,
// and it counts every disk read it causes.
type Iterator struct {
	r   *Reader
	pos int // next unread ordinal

	blockIdx int // decoded block held in block, -1 when none
	block    column.Column

	stats IOStatistics
}

// Pos returns the ordinal of the next value Scan would return.
func (it *Iterator) Pos() int { return it.pos }

// IOStats returns the disk-read counters accumulated by this iterator.
func (it *Iterator) IOStats() IOStatistics { return it.stats }

// SeekToOrdinal positions the iterator so the next Scan starts at ord.
// ord may equal NumRows(), leaving the iterator exhausted. No I/O happens
// until the next Scan.
func (it *Iterator) SeekToOrdinal(ord int) error {
	if ord < 0 || ord > it.r.numRows {
		return fmt.Errorf("seek ordinal %d out of range [0, %d]", ord, it.r.numRows)
	}
	it.pos = ord
	return nil
}

// Scan reads up to n consecutive values starting at the current position,
// advancing it. Returns fewer than n values only at end of file.
func (it *Iterator) Scan(n int) (column.Column, error) {
	if n < 0 {
		return nil, fmt.Errorf("scan count %d is negative", n)
	}
	remain := it.r.numRows - it.pos
	if n > remain {
		n = remain
	}
	out := column.NewColumnWithCapacity(it.r.dt, n)
	for n > 0 {
		b := it.r.blockForOrdinal(it.pos)
		if err := it.loadBlock(b); err != nil {
			return nil, err
		}
		offset := it.pos - it.r.marks[b].FirstRow
		take := it.block.Len() - offset
		if take > n {
			take = n
		}
		column.AppendRange(out, it.block, offset, offset+take)
		it.pos += take
		n -= take
	}
	return out, nil
}

// SeekAtOrAfter positions the iterator at the first row whose value is >= v
// and returns its ordinal, with exact reporting whether the value matched
// equal. Requires a value-indexed file with ascending values. When every row
// is < v the iterator lands past the end and ErrNotFound is returned with
// ord == NumRows().
func (it *Iterator) SeekAtOrAfter(v types.Value) (ord int, exact bool, err error) {
	if !it.r.HasValueIndex() {
		return 0, false, ErrNoValueIndex
	}
	if it.r.numRows == 0 {
		return 0, false, ErrNotFound
	}
	dt := it.r.dt
	firstVals := it.r.firstVals

	// Last block whose first value is <= v; sort.Search finds the first
	// block strictly greater.
	b := sort.Search(len(firstVals), func(i int) bool {
		return types.CompareValues(dt, firstVals[i], v) > 0
	}) - 1
	if b < 0 {
		// v sorts before the first row of the file.
		it.pos = 0
		return 0, false, nil
	}

	if err := it.loadBlock(b); err != nil {
		return 0, false, err
	}
	// First row within the block with value >= v.
	i := sort.Search(it.block.Len(), func(i int) bool {
		return types.CompareValues(dt, it.block.Value(i), v) >= 0
	})
	if i == it.block.Len() {
		// Every row of block b is < v; the answer is the first row of the
		// next block, which is known to be > v.
		next := it.r.marks[b].FirstRow + it.block.Len()
		it.pos = next
		if next >= it.r.numRows {
			return it.r.numRows, false, ErrNotFound
		}
		return next, false, nil
	}
	ord = it.r.marks[b].FirstRow + i
	it.pos = ord
	exact = types.CompareValues(dt, it.block.Value(i), v) == 0
	return ord, exact, nil
}

func (it *Iterator) loadBlock(b int) error {
	if it.blockIdx == b {
		return nil
	}
	col, err := it.r.readBlock(b, &it.stats)
	if err != nil {
		return err
	}
	it.blockIdx = b
	it.block = col
	return nil
}
