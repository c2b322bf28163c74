package rowset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathsigit/kudu/internal/bloomfile"
	"github.com/mathsigit/kudu/internal/column"
	"github.com/mathsigit/kudu/internal/types"
)

func TestPredicateEvaluateRow(t *testing.T) {
	tests := []struct {
		name string
		pred *ColumnRangePredicate
		v    types.Value
		want bool
	}{
		{"eq match", NewEqualityPredicate("k", types.TypeUInt64, uint64(5)), uint64(5), true},
		{"eq miss", NewEqualityPredicate("k", types.TypeUInt64, uint64(5)), uint64(6), false},
		{"lower inclusive hit", NewLowerBoundPredicate("k", types.TypeInt64, int64(10), true), int64(10), true},
		{"lower exclusive edge", NewLowerBoundPredicate("k", types.TypeInt64, int64(10), false), int64(10), false},
		{"upper inclusive hit", NewUpperBoundPredicate("k", types.TypeInt64, int64(10), true), int64(10), true},
		{"upper exclusive edge", NewUpperBoundPredicate("k", types.TypeInt64, int64(10), false), int64(10), false},
		{"range inside", NewRangePredicate("k", types.TypeUInt64, uint64(2), uint64(8), true, true), uint64(5), true},
		{"range below", NewRangePredicate("k", types.TypeUInt64, uint64(2), uint64(8), true, true), uint64(1), false},
		{"range above", NewRangePredicate("k", types.TypeUInt64, uint64(2), uint64(8), true, true), uint64(9), false},
		{"string range", NewRangePredicate("k", types.TypeString, "b", "d", true, false), "c", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.pred.EvaluateRow(tc.v))
		})
	}
}

func TestPredicateIsBounded(t *testing.T) {
	assert.True(t, NewLowerBoundPredicate("k", types.TypeUInt64, uint64(1), true).IsBounded())
	assert.True(t, NewUpperBoundPredicate("k", types.TypeUInt64, uint64(1), true).IsBounded())
	assert.False(t, (&ColumnRangePredicate{Column: "k", DataType: types.TypeUInt64}).IsBounded())
}

func TestPredicateString(t *testing.T) {
	p := NewRangePredicate("key", types.TypeUInt64, uint64(200), uint64(300), true, false)
	assert.Equal(t, "key >= 200 AND key < 300", p.String())
	assert.Equal(t, "key: unbounded", (&ColumnRangePredicate{Column: "key"}).String())
}

func TestScanSpecWithout(t *testing.T) {
	a := NewEqualityPredicate("k", types.TypeUInt64, uint64(1))
	b := NewEqualityPredicate("k", types.TypeUInt64, uint64(1)) // equal but distinct
	spec := NewScanSpec().AddPredicate(a).AddPredicate(b)

	rest := spec.Without(a)
	require.Len(t, rest.Predicates(), 1)
	assert.Same(t, b, rest.Predicates()[0], "removal is by identity, not by value")

	copied := spec.Without(nil)
	require.Len(t, copied.Predicates(), 2)
	copied.AddPredicate(NewEqualityPredicate("k", types.TypeUInt64, uint64(2)))
	assert.Len(t, spec.Predicates(), 2, "the source spec is unaffected")
}

func TestSelectionVector(t *testing.T) {
	sv := NewAllSelected(8)
	assert.Equal(t, 8, sv.Len())
	assert.Equal(t, 8, sv.CountSelected())
	assert.True(t, sv.IsRowSelected(0))
	assert.True(t, sv.IsRowSelected(7))

	sv.ClearRow(3)
	assert.False(t, sv.IsRowSelected(3))
	assert.Equal(t, 7, sv.CountSelected())

	sv.SetRow(3)
	assert.True(t, sv.IsRowSelected(3))

	for i := 0; i < 8; i++ {
		sv.ClearRow(i)
	}
	assert.False(t, sv.AnySelected())

	empty := NewAllSelected(0)
	assert.Equal(t, 0, empty.Len())
	assert.False(t, empty.AnySelected())
}

func TestKeyProbe(t *testing.T) {
	p1, err := NewKeyProbe(types.TypeUInt64, uint64(42))
	require.NoError(t, err)
	p2, err := NewKeyProbe(types.TypeUInt64, uint64(42))
	require.NoError(t, err)

	assert.Equal(t, uint64(42), p1.Key())
	assert.Equal(t, p1.EncodedKey(), p2.EncodedKey())
	assert.Equal(t, p1.Hash(), p2.Hash(), "equal keys hash identically")

	enc, err := column.EncodeValueBytes(types.TypeUInt64, uint64(42))
	require.NoError(t, err)
	assert.Equal(t, bloomfile.HashKey(enc), p1.Hash())

	p3, err := NewKeyProbe(types.TypeUInt64, uint64(43))
	require.NoError(t, err)
	assert.NotEqual(t, p1.Hash(), p3.Hash())

	s, err := NewKeyProbe(types.TypeString, "user-0001")
	require.NoError(t, err)
	assert.Equal(t, "user-0001", s.Key())
}

func TestSchemaValidation(t *testing.T) {
	_, err := NewSchema(nil)
	require.Error(t, err)

	_, err = NewSchema([]ColumnDef{{Name: "", DataType: types.TypeUInt64}})
	require.Error(t, err)

	_, err = NewSchema([]ColumnDef{
		{Name: "a", DataType: types.TypeUInt64},
		{Name: "a", DataType: types.TypeInt64},
	})
	require.Error(t, err)

	s, err := NewSchema([]ColumnDef{
		{Name: "a", DataType: types.TypeUInt64},
		{Name: "b", DataType: types.TypeInt64},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, s.ColumnIndex("a"))
	assert.Equal(t, -1, s.ColumnIndex("z"))

	mapping, err := s.ProjectionMapping([]string{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, mapping)

	_, err = s.ProjectionMapping([]string{"b", "z"})
	require.Error(t, err)
	_, err = s.ProjectionMapping(nil)
	require.Error(t, err)
}
