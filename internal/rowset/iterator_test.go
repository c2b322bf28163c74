package rowset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathsigit/kudu/internal/column"
	"github.com/mathsigit/kudu/internal/types"
)

func openTestRowset(t *testing.T, n int, keyStep uint64) *BaseData {
	t.Helper()
	dir := writeTestRowset(t, n, keyStep, smallBlockOptions())
	base, err := OpenRowset(dir)
	require.NoError(t, err)
	t.Cleanup(func() { base.Close() })
	return base
}

// openRowsetWithKeys writes and opens a two-column rowset whose key column
// has an arbitrary type, for tests that need keys narrower than uint64.
func openRowsetWithKeys(t *testing.T, keyType types.DataType, keys column.Column) *BaseData {
	t.Helper()
	schema, err := NewSchema([]ColumnDef{
		{Name: "key", DataType: keyType},
		{Name: "metric", DataType: types.TypeInt64},
	})
	require.NoError(t, err)

	metrics := &column.Int64Column{Data: make([]int64, keys.Len())}
	for i := range metrics.Data {
		metrics.Data[i] = int64(i) * 10
	}
	block := column.NewBlock([]string{"key", "metric"}, []column.Column{keys, metrics})

	dir := filepath.Join(t.TempDir(), "rs")
	_, err = NewWriter(schema, smallBlockOptions()).WriteRowset(dir, block)
	require.NoError(t, err)

	base, err := OpenRowset(dir)
	require.NoError(t, err)
	t.Cleanup(func() { base.Close() })
	return base
}

// scanKeys drives a full batch loop over the key column and returns every
// key yielded, in order.
func scanKeys(t *testing.T, it *Iterator, batchSize int) []uint64 {
	t.Helper()
	var out []uint64
	for it.HasNext() {
		n, err := it.PrepareBatch(batchSize)
		require.NoError(t, err)
		require.Greater(t, n, 0)

		keys := column.NewColumnWithCapacity(types.TypeUInt64, n)
		require.NoError(t, it.MaterializeColumn(0, keys))
		out = append(out, keys.(*column.UInt64Column).Data...)
		require.NoError(t, it.FinishBatch())
	}
	n, err := it.PrepareBatch(batchSize)
	require.NoError(t, err)
	require.Equal(t, 0, n, "an exhausted iterator prepares empty batches")
	return out
}

func TestFullScan(t *testing.T) {
	base := openTestRowset(t, 1000, 1)

	it, err := base.NewIterator([]string{"key", "metric", "label"})
	require.NoError(t, err)
	require.NoError(t, it.Init(nil))

	lower, upper := it.Bounds()
	assert.Equal(t, 0, lower)
	assert.Equal(t, 999, upper)
	assert.Empty(t, it.Residual().Predicates())

	total := 0
	for it.HasNext() {
		n, err := it.PrepareBatch(128)
		require.NoError(t, err)

		keys := column.NewColumnWithCapacity(types.TypeUInt64, n)
		metrics := column.NewColumnWithCapacity(types.TypeInt64, n)
		labels := column.NewColumnWithCapacity(types.TypeString, n)
		require.NoError(t, it.MaterializeColumn(0, keys))
		require.NoError(t, it.MaterializeColumn(1, metrics))
		require.NoError(t, it.MaterializeColumn(2, labels))

		for i := 0; i < n; i++ {
			ord := total + i
			assert.Equal(t, uint64(ord), keys.Value(i))
			assert.Equal(t, int64(ord)*10, metrics.Value(i))
		}
		total += n
		require.NoError(t, it.FinishBatch())
	}
	assert.Equal(t, 1000, total)
	assert.False(t, it.HasNext())
}

func TestShortFinalBatch(t *testing.T) {
	base := openTestRowset(t, 300, 1)

	it, err := base.NewIterator([]string{"key"})
	require.NoError(t, err)
	require.NoError(t, it.Init(nil))

	sizes := []int{}
	for it.HasNext() {
		n, err := it.PrepareBatch(128)
		require.NoError(t, err)
		sizes = append(sizes, n)
		require.NoError(t, it.FinishBatch())
	}
	assert.Equal(t, []int{128, 128, 44}, sizes)
}

func TestLazyColumnPreparation(t *testing.T) {
	base := openTestRowset(t, 1000, 1)

	it, err := base.NewIterator([]string{"key", "metric", "label"})
	require.NoError(t, err)
	require.NoError(t, it.Init(nil))

	for it.HasNext() {
		n, err := it.PrepareBatch(256)
		require.NoError(t, err)
		keys := column.NewColumnWithCapacity(types.TypeUInt64, n)
		require.NoError(t, it.MaterializeColumn(0, keys))
		require.NoError(t, it.FinishBatch())
	}

	stats := it.IOStatistics()
	require.Len(t, stats, 3)
	assert.Greater(t, stats[0].BlocksRead, 0, "materialized column reads blocks")
	assert.Equal(t, 0, stats[1].BlocksRead, "unmaterialized column reads nothing")
	assert.Equal(t, 0, stats[2].BlocksRead, "unmaterialized column reads nothing")
}

func TestRematerializeWithinBatchCausesNoIO(t *testing.T) {
	base := openTestRowset(t, 200, 1)

	it, err := base.NewIterator([]string{"key", "metric"})
	require.NoError(t, err)
	require.NoError(t, it.Init(nil))

	n, err := it.PrepareBatch(100)
	require.NoError(t, err)

	first := column.NewColumnWithCapacity(types.TypeInt64, n)
	require.NoError(t, it.MaterializeColumn(1, first))
	after := it.IOStatistics()[1]

	second := column.NewColumnWithCapacity(types.TypeInt64, n)
	require.NoError(t, it.MaterializeColumn(1, second))
	assert.Equal(t, after, it.IOStatistics()[1], "second materialization is served from staging")
	assert.Equal(t, first.(*column.Int64Column).Data, second.(*column.Int64Column).Data)

	require.NoError(t, it.FinishBatch())
}

func TestIteratorStateGuards(t *testing.T) {
	base := openTestRowset(t, 100, 1)

	it, err := base.NewIterator([]string{"key"})
	require.NoError(t, err)

	_, err = it.PrepareBatch(10)
	require.ErrorIs(t, err, ErrInvalidState)
	err = it.MaterializeColumn(0, column.NewColumnWithCapacity(types.TypeUInt64, 0))
	require.ErrorIs(t, err, ErrInvalidState)
	require.ErrorIs(t, it.FinishBatch(), ErrInvalidState)
	require.Panics(t, func() { it.HasNext() })
	require.Panics(t, func() { it.InitializeSelectionVector() })

	require.NoError(t, it.Init(nil))
	require.ErrorIs(t, it.Init(nil), ErrInvalidState)

	// No batch open yet: materialization must fail fast, not no-op.
	err = it.MaterializeColumn(0, column.NewColumnWithCapacity(types.TypeUInt64, 0))
	require.ErrorIs(t, err, ErrInvalidState)
	require.Panics(t, func() { it.InitializeSelectionVector() })

	_, err = it.PrepareBatch(10)
	require.NoError(t, err)
	_, err = it.PrepareBatch(10)
	require.ErrorIs(t, err, ErrInvalidState, "a batch is already open")
	require.NoError(t, it.FinishBatch())

	// Same between batches, right after FinishBatch.
	err = it.MaterializeColumn(0, column.NewColumnWithCapacity(types.TypeUInt64, 0))
	require.ErrorIs(t, err, ErrInvalidState)
	require.Panics(t, func() { it.InitializeSelectionVector() })
}

func TestMaterializeColumnValidation(t *testing.T) {
	base := openTestRowset(t, 100, 1)

	it, err := base.NewIterator([]string{"key", "metric"})
	require.NoError(t, err)
	require.NoError(t, it.Init(nil))
	_, err = it.PrepareBatch(10)
	require.NoError(t, err)

	err = it.MaterializeColumn(1, column.NewColumnWithCapacity(types.TypeString, 0))
	require.Error(t, err, "destination type must match the column")

	err = it.MaterializeColumn(2, column.NewColumnWithCapacity(types.TypeUInt64, 0))
	require.Error(t, err, "index outside the projection")
	err = it.MaterializeColumn(-1, column.NewColumnWithCapacity(types.TypeUInt64, 0))
	require.Error(t, err)
}

func TestProjectionSubsetAndOrder(t *testing.T) {
	base := openTestRowset(t, 100, 1)

	it, err := base.NewIterator([]string{"label", "key"})
	require.NoError(t, err)
	assert.Equal(t, []string{"label", "key"}, it.Schema())
	require.NoError(t, it.Init(nil))

	n, err := it.PrepareBatch(5)
	require.NoError(t, err)
	labels := column.NewColumnWithCapacity(types.TypeString, n)
	keys := column.NewColumnWithCapacity(types.TypeUInt64, n)
	require.NoError(t, it.MaterializeColumn(0, labels))
	require.NoError(t, it.MaterializeColumn(1, keys))
	assert.Equal(t, "row-0000", labels.Value(0))
	assert.Equal(t, uint64(0), keys.Value(0))

	_, err = base.NewIterator([]string{"key", "nope"})
	require.Error(t, err)
	_, err = base.NewIterator(nil)
	require.Error(t, err)
}

func TestPushdownKeyRange(t *testing.T) {
	base := openTestRowset(t, 1000, 1)

	spec := NewScanSpec().AddPredicate(
		NewRangePredicate("key", types.TypeUInt64, uint64(200), uint64(300), true, false))

	it, err := base.NewIterator([]string{"key"})
	require.NoError(t, err)
	require.NoError(t, it.Init(spec))

	lower, upper := it.Bounds()
	assert.Equal(t, 200, lower)
	assert.Equal(t, 299, upper)
	assert.Empty(t, it.Residual().Predicates(), "the pushed-down predicate leaves the residual")
	require.Len(t, spec.Predicates(), 1, "the input spec is never modified")

	keys := scanKeys(t, it, 64)
	require.Len(t, keys, 100)
	assert.Equal(t, uint64(200), keys[0])
	assert.Equal(t, uint64(299), keys[99])
}

func TestPushdownExclusiveLowerBound(t *testing.T) {
	base := openTestRowset(t, 1000, 1)

	spec := NewScanSpec().AddPredicate(
		NewLowerBoundPredicate("key", types.TypeUInt64, uint64(200), false))

	it, err := base.NewIterator([]string{"key"})
	require.NoError(t, err)
	require.NoError(t, it.Init(spec))

	lower, upper := it.Bounds()
	assert.Equal(t, 201, lower)
	assert.Equal(t, 999, upper)
}

func TestPushdownBoundsBetweenKeys(t *testing.T) {
	// Keys 0, 2, 4, ..., 1998: the bounds fall between stored keys.
	base := openTestRowset(t, 1000, 2)

	spec := NewScanSpec().AddPredicate(
		NewRangePredicate("key", types.TypeUInt64, uint64(401), uint64(409), true, true))

	it, err := base.NewIterator([]string{"key"})
	require.NoError(t, err)
	require.NoError(t, it.Init(spec))

	keys := scanKeys(t, it, 64)
	assert.Equal(t, []uint64{402, 404, 406, 408}, keys)
}

func TestPushdownEmptyRange(t *testing.T) {
	base := openTestRowset(t, 1000, 1)

	tests := []struct {
		name string
		spec *ScanSpec
	}{
		{"beyond last key", NewScanSpec().AddPredicate(
			NewLowerBoundPredicate("key", types.TypeUInt64, uint64(5000), true))},
		{"before first key", NewScanSpec().AddPredicate(
			NewUpperBoundPredicate("key", types.TypeUInt64, uint64(0), false))},
		{"hollow range", NewScanSpec().AddPredicate(
			NewRangePredicate("key", types.TypeUInt64, uint64(10), uint64(10), false, false))},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			it, err := base.NewIterator([]string{"key"})
			require.NoError(t, err)
			require.NoError(t, it.Init(tc.spec))

			lower, upper := it.Bounds()
			assert.Greater(t, lower, upper, "empty ranges are lower > upper")
			assert.False(t, it.HasNext())
			n, err := it.PrepareBatch(10)
			require.NoError(t, err)
			assert.Equal(t, 0, n)
		})
	}
}

func TestPushdownLeavesOtherPredicatesResidual(t *testing.T) {
	base := openTestRowset(t, 1000, 1)

	keyPred := NewRangePredicate("key", types.TypeUInt64, uint64(100), uint64(200), true, true)
	metricPred := NewLowerBoundPredicate("metric", types.TypeInt64, int64(500), true)
	spec := NewScanSpec().AddPredicate(metricPred).AddPredicate(keyPred)

	it, err := base.NewIterator([]string{"key", "metric"})
	require.NoError(t, err)
	require.NoError(t, it.Init(spec))

	lower, upper := it.Bounds()
	assert.Equal(t, 100, lower)
	assert.Equal(t, 200, upper)
	residual := it.Residual().Predicates()
	require.Len(t, residual, 1)
	assert.Same(t, metricPred, residual[0])
}

func TestPushdownConsumesOnlyFirstKeyPredicate(t *testing.T) {
	base := openTestRowset(t, 1000, 1)

	first := NewLowerBoundPredicate("key", types.TypeUInt64, uint64(100), true)
	second := NewUpperBoundPredicate("key", types.TypeUInt64, uint64(500), true)
	spec := NewScanSpec().AddPredicate(first).AddPredicate(second)

	it, err := base.NewIterator([]string{"key"})
	require.NoError(t, err)
	require.NoError(t, it.Init(spec))

	lower, upper := it.Bounds()
	assert.Equal(t, 100, lower)
	assert.Equal(t, 999, upper, "the second key predicate stays residual")
	residual := it.Residual().Predicates()
	require.Len(t, residual, 1)
	assert.Same(t, second, residual[0])
}

func TestPushdownSkipsUncoercibleValues(t *testing.T) {
	base := openTestRowset(t, 100, 1)

	pred := NewLowerBoundPredicate("key", types.TypeUInt64, "not a number", true)
	it, err := base.NewIterator([]string{"key"})
	require.NoError(t, err)
	require.NoError(t, it.Init(NewScanSpec().AddPredicate(pred)))

	lower, upper := it.Bounds()
	assert.Equal(t, 0, lower)
	assert.Equal(t, 99, upper)
	residual := it.Residual().Predicates()
	require.Len(t, residual, 1)
	assert.Same(t, pred, residual[0])
}

func TestPushdownBoundOutsideKeyTypeRange(t *testing.T) {
	// A bound the key type cannot represent must not be truncated into a
	// different bound; it stays residual and the scan keeps full bounds.
	u8 := &column.UInt8Column{Data: make([]uint8, 100)}
	for i := range u8.Data {
		u8.Data[i] = uint8(i)
	}
	base := openRowsetWithKeys(t, types.TypeUInt8, u8)

	pred := NewLowerBoundPredicate("key", types.TypeUInt8, int64(300), true)
	it, err := base.NewIterator([]string{"key"})
	require.NoError(t, err)
	require.NoError(t, it.Init(NewScanSpec().AddPredicate(pred)))

	lower, upper := it.Bounds()
	assert.Equal(t, 0, lower)
	assert.Equal(t, 99, upper, "300 must not become uint8(44)")
	residual := it.Residual().Predicates()
	require.Len(t, residual, 1, "an unrepresentable bound is never consumed")
	assert.Same(t, pred, residual[0])
}

func TestPushdownNegativeBoundOnUnsignedKey(t *testing.T) {
	u32 := &column.UInt32Column{Data: make([]uint32, 100)}
	for i := range u32.Data {
		u32.Data[i] = uint32(i)
	}
	base := openRowsetWithKeys(t, types.TypeUInt32, u32)

	pred := NewLowerBoundPredicate("key", types.TypeUInt32, int64(-1), true)
	it, err := base.NewIterator([]string{"key"})
	require.NoError(t, err)
	require.NoError(t, it.Init(NewScanSpec().AddPredicate(pred)))

	lower, upper := it.Bounds()
	assert.Equal(t, 0, lower, "-1 must not wrap to MaxUint32 and empty the scan")
	assert.Equal(t, 99, upper)
	residual := it.Residual().Predicates()
	require.Len(t, residual, 1)
	assert.Same(t, pred, residual[0])
}

func TestColumnReadFailureNamesColumn(t *testing.T) {
	base := openTestRowset(t, 200, 1)

	it, err := base.NewIterator([]string{"key", "metric"})
	require.NoError(t, err)
	require.NoError(t, it.Init(nil))
	n, err := it.PrepareBatch(50)
	require.NoError(t, err)

	// Fail the column's first read by closing its file out from under it.
	require.NoError(t, base.readers[1].Close())

	dst := column.NewColumnWithCapacity(types.TypeInt64, n)
	err = it.MaterializeColumn(1, dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "metric"`)
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestSelectionVectorWithResidual(t *testing.T) {
	base := openTestRowset(t, 100, 1)

	keyPred := NewRangePredicate("key", types.TypeUInt64, uint64(10), uint64(29), true, true)
	metricPred := NewLowerBoundPredicate("metric", types.TypeInt64, int64(200), true)
	spec := NewScanSpec().AddPredicate(keyPred).AddPredicate(metricPred)

	it, err := base.NewIterator([]string{"key", "metric"})
	require.NoError(t, err)
	require.NoError(t, it.Init(spec))

	n, err := it.PrepareBatch(100)
	require.NoError(t, err)
	require.Equal(t, 20, n)

	sv := it.InitializeSelectionVector()
	require.Equal(t, 20, sv.Len())
	require.Equal(t, 20, sv.CountSelected())

	metrics := column.NewColumnWithCapacity(types.TypeInt64, n)
	require.NoError(t, it.MaterializeColumn(1, metrics))
	for _, p := range it.Residual().Predicates() {
		require.Equal(t, "metric", p.Column)
		for i := 0; i < n; i++ {
			if !p.EvaluateRow(metrics.Value(i)) {
				sv.ClearRow(i)
			}
		}
	}

	// Keys 10..29 with metric = key*10; metric >= 200 keeps keys 20..29.
	assert.Equal(t, 10, sv.CountSelected())
	assert.False(t, sv.IsRowSelected(0))
	assert.True(t, sv.IsRowSelected(10))
	assert.True(t, sv.AnySelected())

	require.NoError(t, it.FinishBatch())
}

// End-to-end walk: lookups, a pushed-down range scan, and exhaustion on a
// thousand-row rowset.
func TestThousandRowScenario(t *testing.T) {
	base := openTestRowset(t, 1000, 1)

	probe, err := NewKeyProbe(types.TypeUInt64, uint64(500))
	require.NoError(t, err)
	ord, err := base.FindRow(probe)
	require.NoError(t, err)
	assert.Equal(t, 500, ord)

	absent, err := NewKeyProbe(types.TypeUInt64, uint64(100000))
	require.NoError(t, err)
	present, err := base.CheckRowPresent(absent)
	require.NoError(t, err)
	assert.False(t, present)

	spec := NewScanSpec().AddPredicate(
		NewRangePredicate("key", types.TypeUInt64, uint64(200), uint64(300), true, false))
	it, err := base.NewIterator([]string{"key"})
	require.NoError(t, err)
	require.NoError(t, it.Init(spec))

	keys := scanKeys(t, it, 37) // odd batch size on purpose
	require.Len(t, keys, 100)
	for i, k := range keys {
		assert.Equal(t, uint64(200+i), k)
	}
	assert.False(t, it.HasNext())
}
