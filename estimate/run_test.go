package estimate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/greml/builder"
	"github.com/katalvlaran/greml/estimate"
	"github.com/katalvlaran/greml/ldblock"
	"github.com/katalvlaran/greml/linkfn"
	"github.com/katalvlaran/greml/newton"
)

const sampleSize = 1e5

// enrichedBlocks simulates nb blocks of m variants with identity LD, a
// base column plus one indicator flagging the first half of each block,
// and a strongly enriched flagged category: σ² = 1e-5 at baseline, 1e-3
// when flagged.
func enrichedBlocks(t *testing.T, nb, m int, seed uint64) []*ldblock.Block {
	t.Helper()
	link := linkfn.Softplus{}

	theta0, err := link.Inverse(1e-5)
	require.NoError(t, err)
	thetaFlag, err := link.Inverse(1e-3)
	require.NoError(t, err)

	flagged := make([]int, m/2)
	for i := range flagged {
		flagged[i] = i
	}

	blocks := make([]*ldblock.Block, nb)
	for i := range blocks {
		b, err := builder.Block(
			builder.Identity(m),
			builder.Binary(m, flagged),
			[]float64{theta0, thetaFlag - theta0},
			builder.WithSampleSize(sampleSize),
			builder.WithSeed(seed+uint64(i)),
		)
		require.NoError(t, err)
		blocks[i] = b
	}

	return blocks
}

// zeroOverlapBlock has annotations and summary statistics on disjoint
// variant sets, so reconciliation retains nothing.
func zeroOverlapBlock(t *testing.T) *ldblock.Block {
	t.Helper()
	b, err := builder.Block(
		builder.Identity(4),
		builder.Binary(2, []int{0}),
		[]float64{-11, 4.6},
		builder.WithAnnotRows([]int{0, 1}),
		builder.WithSumstatRows([]int{2, 3}),
		builder.WithSampleSize(sampleSize),
		builder.WithSeed(99),
	)
	require.NoError(t, err)

	return b
}

// TestRun_RecoversEnrichment: the full pipeline on simulated data with a
// 100× enriched annotation detects the enrichment.
func TestRun_RecoversEnrichment(t *testing.T) {
	blocks := enrichedBlocks(t, 4, 40, 1000)
	cfg := estimate.DefaultConfig(sampleSize)

	res, err := estimate.Run(blocks, cfg)
	require.NoError(t, err)

	assert.Equal(t, newton.StatusConverged, res.Fit.Status)
	assert.Equal(t, 4, res.NumBlocks)
	assert.Equal(t, 0, res.DroppedEmpty)
	assert.Equal(t, 0, res.DroppedLargeEffect)

	inf := res.Inference
	require.NotNil(t, inf)

	// The flagged category carries ~100× the per-variant heritability of
	// the baseline; point enrichment must exceed 1 and the naive test must
	// reject equality.
	assert.Greater(t, inf.Enrichment[1], 1.0)
	require.NotNil(t, inf.Naive)
	assert.Less(t, inf.Naive.EnrichP[1], 0.05)
	assert.Equal(t, 1.0, inf.Enrichment[0])

	// Four blocks: the jackknife runs, one deletion per block.
	require.NotNil(t, inf.Jackknife)
	require.NotNil(t, inf.JackRec)
	r, c := inf.JackRec.Deleted.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, len(res.Fit.Params), c)

	// Deletion estimates stay in the neighborhood of the full fit: the
	// pseudo-value mean approximates the full-sample estimate.
	total := inf.Heritability[0]
	require.Greater(t, total, 0.0)
	for b, h := range inf.JackRec.DeletedHer {
		assert.Greater(t, h, 0.5*total, "deletion %d", b)
		assert.Less(t, h, 1.5*total, "deletion %d", b)
	}
	for j, p := range res.Fit.Params {
		var mean float64
		for b := 0; b < r; b++ {
			mean += inf.JackRec.Deleted.At(b, j)
		}
		mean /= float64(r)
		assert.InDelta(t, p, mean, 1, "param %d", j)
	}

	// The accepted-step objective never increases and the gradient shrinks.
	iters := res.Fit.Iterations
	require.NotEmpty(t, iters)
	assert.Less(t, iters[len(iters)-1].GradNorm, iters[0].GradNorm)
}

// TestRun_SingleStrongBlock: one block, ten variants, identity LD, half the
// variants carrying per-variant heritability 0.1 at sample size 1e5. The
// enrichment is detected even though the jackknife cannot run.
func TestRun_SingleStrongBlock(t *testing.T) {
	link := linkfn.Softplus{}
	thetaFlag, err := link.Inverse(0.1)
	require.NoError(t, err)

	b, err := builder.Block(
		builder.Identity(10),
		builder.Binary(10, []int{0, 1, 2, 3, 4}),
		[]float64{-20, thetaFlag + 20},
		builder.WithSampleSize(sampleSize),
		builder.WithSeed(77),
	)
	require.NoError(t, err)

	res, err := estimate.Run([]*ldblock.Block{b}, estimate.DefaultConfig(sampleSize))
	require.NoError(t, err)

	inf := res.Inference
	assert.Greater(t, inf.Enrichment[1], 1.0)
	require.NotNil(t, inf.Naive)
	assert.Less(t, inf.Naive.EnrichP[1], 0.05)
	assert.Nil(t, inf.Jackknife)
	assert.Nil(t, inf.Sandwich)
}

// TestRun_DropsZeroOverlapBlock: a block whose summary statistics have no
// annotation coverage is dropped, and the fit equals the fit without it.
func TestRun_DropsZeroOverlapBlock(t *testing.T) {
	withEmpty := enrichedBlocks(t, 2, 30, 2000)
	withEmpty = append(withEmpty, zeroOverlapBlock(t))

	res, err := estimate.Run(withEmpty, estimate.DefaultConfig(sampleSize))
	require.NoError(t, err)
	assert.Equal(t, 2, res.NumBlocks)
	assert.Equal(t, 1, res.DroppedEmpty)

	// Same seeds, no empty block: bit-identical fit.
	baseline, err := estimate.Run(enrichedBlocks(t, 2, 30, 2000), estimate.DefaultConfig(sampleSize))
	require.NoError(t, err)

	assert.Equal(t, baseline.Fit.Params, res.Fit.Params)
	assert.Equal(t, baseline.Fit.NLL, res.Fit.NLL)
	assert.Equal(t, baseline.Inference.Enrichment, res.Inference.Enrichment)
}

// TestRun_DiscardPolicyExcludesLargeEffect: an over-threshold block is
// removed and counted, and the fit equals the fit without it.
func TestRun_DiscardPolicyExcludesLargeEffect(t *testing.T) {
	blocks := enrichedBlocks(t, 3, 30, 3000)
	blocks[2].Z[0] = 50 // χ² = 2500, far over any default-scale threshold

	cfg := estimate.DefaultConfig(sampleSize)
	cfg.Policy = ldblock.PolicyDiscard
	cfg.ChiSqThreshold = 500

	res, err := estimate.Run(blocks, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, res.NumBlocks)
	assert.Equal(t, 1, res.DroppedLargeEffect)
	assert.Equal(t, 500.0, res.Threshold)

	baseline, err := estimate.Run(enrichedBlocks(t, 2, 30, 3000), estimate.DefaultConfig(sampleSize))
	require.NoError(t, err)
	assert.Equal(t, baseline.Fit.Params, res.Fit.Params)
}

// TestRun_AnnotatePolicyAddsParameter: the annotate policy widens the
// parameter vector by one, initialized from the threshold heritability.
func TestRun_AnnotatePolicyAddsParameter(t *testing.T) {
	blocks := enrichedBlocks(t, 3, 30, 4000)
	blocks[2].Z[0] = 50

	cfg := estimate.DefaultConfig(sampleSize)
	cfg.Policy = ldblock.PolicyAnnotateSNP
	cfg.ChiSqThreshold = 500

	res, err := estimate.Run(blocks, cfg)
	require.NoError(t, err)

	assert.True(t, res.HasExtra)
	assert.Equal(t, 3, res.NumBlocks)
	// base + flag + policy column + free intercept.
	assert.Len(t, res.Fit.Params, 4)
	assert.Equal(t, res.ExtraInit, res.Theta0[2])

	want, err := linkfn.Softplus{}.Inverse(500.0 / sampleSize)
	require.NoError(t, err)
	assert.Equal(t, want, res.ExtraInit)
}

// TestRun_NormalizeAnnotIsExactRescaling: doubling an annotation column
// and normalizing recovers the unscaled fit exactly (the divisor is a
// power of two).
func TestRun_NormalizeAnnotIsExactRescaling(t *testing.T) {
	plain := enrichedBlocks(t, 2, 20, 5000)
	scaled := enrichedBlocks(t, 2, 20, 5000)
	for _, b := range scaled {
		rows, _ := b.Annot.Dims()
		for i := 0; i < rows; i++ {
			b.Annot.Set(i, 1, 2*b.Annot.At(i, 1))
		}
	}

	base, err := estimate.Run(plain, estimate.DefaultConfig(sampleSize))
	require.NoError(t, err)

	cfg := estimate.DefaultConfig(sampleSize)
	cfg.NormalizeAnnot = true
	norm, err := estimate.Run(scaled, cfg)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 2}, norm.AnnotScale)
	assert.Equal(t, base.Fit.Params, norm.Fit.Params)
}

// TestRun_FixedIntercept: pinning the intercept removes its parameter.
func TestRun_FixedIntercept(t *testing.T) {
	blocks := enrichedBlocks(t, 2, 20, 6000)

	cfg := estimate.DefaultConfig(sampleSize)
	cfg.InterceptFixed = true

	res, err := estimate.Run(blocks, cfg)
	require.NoError(t, err)
	assert.Len(t, res.Fit.Params, 2)
	assert.Equal(t, 1.0, res.Inference.Intercept)
}

// TestRun_NullFitCollectsPerVariant.
func TestRun_NullFitCollectsPerVariant(t *testing.T) {
	blocks := enrichedBlocks(t, 3, 10, 7000)

	cfg := estimate.DefaultConfig(sampleSize)
	cfg.NullFit = true

	res, err := estimate.Run(blocks, cfg)
	require.NoError(t, err)
	require.NotNil(t, res.Inference.JackRec)
	require.Len(t, res.Inference.JackRec.VarScore, 3)
	assert.Len(t, res.Inference.JackRec.VarScore[0], 10)
}

func TestRun_Validation(t *testing.T) {
	_, err := estimate.Run(nil, estimate.DefaultConfig(sampleSize))
	assert.ErrorIs(t, err, estimate.ErrNoBlocks)

	blocks := enrichedBlocks(t, 1, 10, 8000)
	_, err = estimate.Run(blocks, estimate.Config{})
	assert.ErrorIs(t, err, estimate.ErrBadConfig)

	_, err = estimate.Run([]*ldblock.Block{zeroOverlapBlock(t)}, estimate.DefaultConfig(sampleSize))
	assert.ErrorIs(t, err, estimate.ErrAllDropped)

	// A missing base column is fatal, not a drop.
	bad := enrichedBlocks(t, 1, 10, 9000)
	rows, _ := bad[0].Annot.Dims()
	for i := 0; i < rows; i++ {
		bad[0].Annot.Set(i, 0, 0)
	}
	_, err = estimate.Run(bad, estimate.DefaultConfig(sampleSize))
	assert.ErrorIs(t, err, ldblock.ErrBaseColumn)
}
