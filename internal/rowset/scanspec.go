package rowset

import (
	"fmt"
	"strings"

	"github.com/mathsigit/kudu/internal/types"
)

// ColumnRangePredicate restricts a column to a closed or half-open range of
// its value domain. A nil Lower means unbounded below; a nil Upper means
// unbounded above.
type ColumnRangePredicate struct {
	Column         string
	DataType       types.DataType
	Lower, Upper   types.Value
	LowerInclusive bool
	UpperInclusive bool
}

// NewEqualityPredicate restricts a column to a single value.
func NewEqualityPredicate(col string, dt types.DataType, v types.Value) *ColumnRangePredicate {
	return &ColumnRangePredicate{
		Column: col, DataType: dt,
		Lower: v, Upper: v,
		LowerInclusive: true, UpperInclusive: true,
	}
}

// NewLowerBoundPredicate restricts a column to values >= (or > when not
// inclusive) the bound.
func NewLowerBoundPredicate(col string, dt types.DataType, v types.Value, inclusive bool) *ColumnRangePredicate {
	return &ColumnRangePredicate{Column: col, DataType: dt, Lower: v, LowerInclusive: inclusive}
}

// NewUpperBoundPredicate restricts a column to values <= (or < when not
// inclusive) the bound.
func NewUpperBoundPredicate(col string, dt types.DataType, v types.Value, inclusive bool) *ColumnRangePredicate {
	return &ColumnRangePredicate{Column: col, DataType: dt, Upper: v, UpperInclusive: inclusive}
}

// NewRangePredicate restricts a column to [lower, upper] with per-bound
// inclusivity. Either bound may be nil for a half-open range.
func NewRangePredicate(col string, dt types.DataType, lower, upper types.Value, lowerInc, upperInc bool) *ColumnRangePredicate {
	return &ColumnRangePredicate{
		Column: col, DataType: dt,
		Lower: lower, Upper: upper,
		LowerInclusive: lowerInc, UpperInclusive: upperInc,
	}
}

// IsBounded reports whether at least one bound is set. An unbounded
// predicate restricts nothing and is not eligible for pushdown.
func (p *ColumnRangePredicate) IsBounded() bool {
	return p.Lower != nil || p.Upper != nil
}

// EvaluateRow reports whether a single value satisfies the predicate.
func (p *ColumnRangePredicate) EvaluateRow(v types.Value) bool {
	if p.Lower != nil {
		c := types.CompareValues(p.DataType, v, p.Lower)
		if c < 0 || (c == 0 && !p.LowerInclusive) {
			return false
		}
	}
	if p.Upper != nil {
		c := types.CompareValues(p.DataType, v, p.Upper)
		if c > 0 || (c == 0 && !p.UpperInclusive) {
			return false
		}
	}
	return true
}

func (p *ColumnRangePredicate) String() string {
	var parts []string
	if p.Lower != nil {
		op := ">"
		if p.LowerInclusive {
			op = ">="
		}
		parts = append(parts, fmt.Sprintf("%s %s %v", p.Column, op, p.Lower))
	}
	if p.Upper != nil {
		op := "<"
		if p.UpperInclusive {
			op = "<="
		}
		parts = append(parts, fmt.Sprintf("%s %s %v", p.Column, op, p.Upper))
	}
	if len(parts) == 0 {
		return p.Column + ": unbounded"
	}
	return strings.Join(parts, " AND ")
}

// ScanSpec carries the predicate set of one scan. The spec handed to
// Iterator.Init is never modified; pushdown produces a residual copy.
type ScanSpec struct {
	predicates []*ColumnRangePredicate
}

// NewScanSpec returns an empty scan specification.
func NewScanSpec() *ScanSpec {
	return &ScanSpec{}
}

// AddPredicate appends a predicate to the spec and returns the spec.
func (s *ScanSpec) AddPredicate(p *ColumnRangePredicate) *ScanSpec {
	s.predicates = append(s.predicates, p)
	return s
}

// Predicates returns the predicate list. Callers must not modify it.
func (s *ScanSpec) Predicates() []*ColumnRangePredicate {
	return s.predicates
}

// Without returns a copy of the spec with one predicate (by identity)
// removed.
func (s *ScanSpec) Without(drop *ColumnRangePredicate) *ScanSpec {
	out := &ScanSpec{predicates: make([]*ColumnRangePredicate, 0, len(s.predicates))}
	for _, p := range s.predicates {
		if p != drop {
			out.predicates = append(out.predicates, p)
		}
	}
	return out
}
