package ldblock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/greml/ldblock"
)

// identityBlock builds a block over m variants with identity precision,
// annotation = base column only, and full index overlap.
func identityBlock(m int) *ldblock.Block {
	prec := mat.NewSymDense(m, nil)
	annot := mat.NewDense(m, 1, nil)
	annotIdx := make([]int, m)
	sumIdx := make([]int, m)
	z := make([]float64, m)
	for i := 0; i < m; i++ {
		prec.SetSym(i, i, 1)
		annot.Set(i, 0, 1)
		annotIdx[i] = i
		sumIdx[i] = i
		z[i] = float64(i) - 1
	}

	return &ldblock.Block{Prec: prec, AnnotIdx: annotIdx, SumstatIdx: sumIdx, Z: z, Annot: annot}
}

// TestReconcile_DropsUnannotatedSumstats: Z entries whose index has no
// annotation must vanish from both Z and the index set.
func TestReconcile_DropsUnannotatedSumstats(t *testing.T) {
	prec := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		prec.SetSym(i, i, 1)
	}
	b := &ldblock.Block{
		Prec:       prec,
		AnnotIdx:   []int{0, 2},
		SumstatIdx: []int{0, 1, 2},
		Z:          []float64{1, 9, 3},
		Annot:      mat.NewDense(2, 1, []float64{1, 1}),
	}

	proxies, err := b.Reconcile()
	require.NoError(t, err)
	assert.Empty(t, proxies, "full overlap after drop, no proxies expected")
	assert.Equal(t, []float64{1, 3}, b.Z, "z for unannotated variant 1 must be gone")
	assert.Equal(t, 2, b.NumVariants())
	assert.Equal(t, []int{0, 2}, b.OrigIdx)
}

// TestReconcile_DeduplicatesSumstats: duplicate sumstat indices keep the
// first occurrence only.
func TestReconcile_DeduplicatesSumstats(t *testing.T) {
	b := identityBlock(2)
	b.SumstatIdx = []int{0, 0, 1}
	b.Z = []float64{5, 7, 2}

	_, err := b.Reconcile()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, b.SumstatIdx)
	assert.Equal(t, []float64{5, 2}, b.Z)
}

// TestReconcile_ProxyR2: one missing variant, one candidate; for
// P = [[2,-1],[-1,2]] the implied correlation is 1/2, so r² = 1/4.
func TestReconcile_ProxyR2(t *testing.T) {
	prec := mat.NewSymDense(2, []float64{2, -1, -1, 2})
	b := &ldblock.Block{
		Prec:       prec,
		AnnotIdx:   []int{0, 1},
		SumstatIdx: []int{0},
		Z:          []float64{1.5},
		Annot:      mat.NewDense(2, 1, []float64{1, 1}),
	}

	proxies, err := b.Reconcile()
	require.NoError(t, err)
	require.Len(t, proxies, 1)
	assert.Equal(t, 1, proxies[0].Missing)
	assert.Equal(t, 0, proxies[0].Proxy)
	assert.InDelta(t, 0.25, proxies[0].R2, 1e-12)

	// Both annotation rows now map to the single retained variant.
	assert.Equal(t, []int{0, 0}, b.RowMap)
	assert.Equal(t, 1, b.NumVariants())
}

// TestReconcile_MissingNeverProxiesMissing: with two missing variants and a
// single present one, both must resolve to the present variant.
func TestReconcile_MissingNeverProxiesMissing(t *testing.T) {
	// Strong LD between the two missing variants (1,2); weak LD to 0.
	prec := mat.NewSymDense(3, []float64{
		1.1, -0.1, -0.1,
		-0.1, 2.0, -1.5,
		-0.1, -1.5, 2.0,
	})
	b := &ldblock.Block{
		Prec:       prec,
		AnnotIdx:   []int{0, 1, 2},
		SumstatIdx: []int{0},
		Z:          []float64{0.3},
		Annot:      mat.NewDense(3, 1, []float64{1, 1, 1}),
	}

	proxies, err := b.Reconcile()
	require.NoError(t, err)
	require.Len(t, proxies, 2)
	for _, pr := range proxies {
		assert.Equal(t, 0, pr.Proxy, "missing %d must be proxied by the present variant", pr.Missing)
		assert.GreaterOrEqual(t, pr.R2, 0.0)
		assert.LessOrEqual(t, pr.R2, 1.0)
	}
}

// TestReconcile_DegenerateProxySentinel: a non-positive-definite precision
// matrix cannot be inverted; the search must fall back to the lowest
// candidate with the sentinel r².
func TestReconcile_DegenerateProxySentinel(t *testing.T) {
	prec := mat.NewSymDense(2, []float64{1, 1, 1, 1}) // singular
	b := &ldblock.Block{
		Prec:       prec,
		AnnotIdx:   []int{0, 1},
		SumstatIdx: []int{0},
		Z:          []float64{1},
		Annot:      mat.NewDense(2, 1, []float64{1, 1}),
	}

	proxies, err := b.Reconcile()
	require.NoError(t, err)
	require.Len(t, proxies, 1)
	assert.Equal(t, ldblock.DegenerateR2, proxies[0].R2)
	assert.Equal(t, 0, proxies[0].Proxy)
}

// TestReconcile_SortsAndPermutesTogether: the sumstat set is sorted
// ascending with Z permuted alongside, and OrigIdx records the originals.
func TestReconcile_SortsAndPermutesTogether(t *testing.T) {
	prec := mat.NewSymDense(4, nil)
	for i := 0; i < 4; i++ {
		prec.SetSym(i, i, float64(i + 1))
	}
	b := &ldblock.Block{
		Prec:       prec,
		AnnotIdx:   []int{3, 1, 2},
		SumstatIdx: []int{3, 1, 2},
		Z:          []float64{30, 10, 20},
		Annot:      mat.NewDense(3, 1, []float64{1, 1, 1}),
	}

	_, err := b.Reconcile()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, b.OrigIdx)
	assert.Equal(t, []float64{10, 20, 30}, b.Z)
	assert.Equal(t, []int{2, 0, 1}, b.RowMap)
	// Precision subset must follow the same ordering: diag = 2,3,4.
	for i, want := range []float64{2, 3, 4} {
		assert.Equal(t, want, b.Prec.At(i, i), "prec diag %d", i)
	}
}

// TestReconcile_Idempotent: a second run changes nothing and reports no
// new proxies.
func TestReconcile_Idempotent(t *testing.T) {
	prec := mat.NewSymDense(2, []float64{2, -1, -1, 2})
	b := &ldblock.Block{
		Prec:       prec,
		AnnotIdx:   []int{0, 1},
		SumstatIdx: []int{0},
		Z:          []float64{1.5},
		Annot:      mat.NewDense(2, 1, []float64{1, 1}),
	}

	_, err := b.Reconcile()
	require.NoError(t, err)

	wantZ := append([]float64(nil), b.Z...)
	wantRowMap := append([]int(nil), b.RowMap...)
	wantOrig := append([]int(nil), b.OrigIdx...)

	proxies, err := b.Reconcile()
	require.NoError(t, err)
	assert.Empty(t, proxies, "idempotent rerun must report no proxies")
	assert.Equal(t, wantZ, b.Z)
	assert.Equal(t, wantRowMap, b.RowMap)
	assert.Equal(t, wantOrig, b.OrigIdx)
}

// TestReconcile_RowMapTotalAndInRange: every annotation row maps to exactly
// one in-range ordinal, and every ordinal is reachable.
func TestReconcile_RowMapTotalAndInRange(t *testing.T) {
	prec := mat.NewSymDense(5, nil)
	for i := 0; i < 5; i++ {
		prec.SetSym(i, i, 1)
	}
	b := &ldblock.Block{
		Prec:       prec,
		AnnotIdx:   []int{4, 0, 2, 2, 1},
		SumstatIdx: []int{0, 1, 2, 3, 4},
		Z:          []float64{1, 2, 3, 4, 5},
		Annot:      mat.NewDense(5, 1, []float64{1, 1, 1, 1, 1}),
	}

	_, err := b.Reconcile()
	require.NoError(t, err)

	require.Len(t, b.RowMap, 5)
	seen := make(map[int]bool)
	for _, ord := range b.RowMap {
		require.GreaterOrEqual(t, ord, 0)
		require.Less(t, ord, b.NumVariants())
		seen[ord] = true
	}
	assert.Len(t, seen, b.NumVariants(), "no ordinal may be unmapped")
}

// TestReconcile_NoSumstats: zero index overlap yields ErrNoSumstats.
func TestReconcile_NoSumstats(t *testing.T) {
	prec := mat.NewSymDense(4, nil)
	for i := 0; i < 4; i++ {
		prec.SetSym(i, i, 1)
	}
	b := &ldblock.Block{
		Prec:       prec,
		AnnotIdx:   []int{0, 1},
		SumstatIdx: []int{2, 3},
		Z:          []float64{1, 2},
		Annot:      mat.NewDense(2, 1, []float64{1, 1}),
	}

	_, err := b.Reconcile()
	assert.ErrorIs(t, err, ldblock.ErrNoSumstats)
}

// TestReconcile_InputValidation covers the malformed-input sentinels.
func TestReconcile_InputValidation(t *testing.T) {
	var nilB *ldblock.Block
	_, err := nilB.Reconcile()
	assert.ErrorIs(t, err, ldblock.ErrNilBlock)

	b := identityBlock(2)
	b.Prec = nil
	_, err = b.Reconcile()
	assert.ErrorIs(t, err, ldblock.ErrNilPrecision)

	b = identityBlock(2)
	b.AnnotIdx = []int{0, 5}
	_, err = b.Reconcile()
	assert.ErrorIs(t, err, ldblock.ErrIndexOutOfRange)

	b = identityBlock(2)
	b.Z = []float64{1}
	_, err = b.Reconcile()
	assert.ErrorIs(t, err, ldblock.ErrDimensionMismatch)
}

// TestAggregate_SumsThroughRowMap: duplicate annotation rows accumulate on
// their shared ordinal; unreconciled blocks error.
func TestAggregate_SumsThroughRowMap(t *testing.T) {
	b := identityBlock(3)
	b.AnnotIdx = []int{0, 1, 1} // rows 1 and 2 share variant 1
	_, err := b.Reconcile()
	require.NoError(t, err)

	out, err := b.Aggregate([]float64{10, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 3}, out)

	fresh := identityBlock(2)
	_, err = fresh.Aggregate([]float64{1, 2})
	assert.ErrorIs(t, err, ldblock.ErrNotReconciled)
}

// TestValidateBase: the base-column precondition is fatal and precise.
func TestValidateBase(t *testing.T) {
	b := identityBlock(2)
	require.NoError(t, b.ValidateBase())

	b.Annot.Set(1, 0, 0.5)
	assert.ErrorIs(t, b.ValidateBase(), ldblock.ErrBaseColumn)
}
