package rowset

import "github.com/RoaringBitmap/roaring"

// SelectionVector marks which rows of a prepared batch survive predicate
// evaluation. A fresh vector selects every row; the consuming engine clears
// rows as residual predicates reject them.
type SelectionVector struct {
	bm    *roaring.Bitmap
	nRows int
}

// NewAllSelected returns a selection vector of length n with every row set.
func NewAllSelected(n int) *SelectionVector {
	bm := roaring.New()
	if n > 0 {
		bm.AddRange(0, uint64(n))
	}
	return &SelectionVector{bm: bm, nRows: n}
}

// Len returns the number of rows the vector covers.
func (sv *SelectionVector) Len() int { return sv.nRows }

// IsRowSelected reports whether row i is selected.
func (sv *SelectionVector) IsRowSelected(i int) bool {
	return sv.bm.Contains(uint32(i))
}

// SetRow marks row i selected.
func (sv *SelectionVector) SetRow(i int) { sv.bm.Add(uint32(i)) }

// ClearRow marks row i unselected.
func (sv *SelectionVector) ClearRow(i int) { sv.bm.Remove(uint32(i)) }

// CountSelected returns the number of selected rows.
func (sv *SelectionVector) CountSelected() int {
	return int(sv.bm.GetCardinality())
}

// AnySelected reports whether at least one row is selected.
func (sv *SelectionVector) AnySelected() bool {
	return !sv.bm.IsEmpty()
}
