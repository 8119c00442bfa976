package likelihood_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/greml/likelihood"
	"github.com/katalvlaran/greml/linkfn"
)

// testBlock is a small well-conditioned fixture: 5 variants, banded PD
// precision, base + binary annotation.
type testBlock struct {
	z     []float64
	annot *mat.Dense
	prec  *mat.SymDense
	n     float64
}

func newTestBlock() *testBlock {
	prec := mat.NewSymDense(5, nil)
	for i := 0; i < 5; i++ {
		prec.SetSym(i, i, 2)
		if i+1 < 5 {
			prec.SetSym(i, i+1, -0.6)
		}
	}

	return &testBlock{
		z: []float64{1.2, -0.4, 2.1, 0.3, -1.7},
		annot: mat.NewDense(5, 2, []float64{
			1, 1,
			1, 0,
			1, 1,
			1, 0,
			1, 0,
		}),
		prec: prec,
		n:    1000,
	}
}

// input builds the oracle input at θ (annotation coefficients only).
func (tb *testBlock) input(t *testing.T, theta []float64, intercept float64, fixed bool) likelihood.Input {
	t.Helper()
	link := linkfn.Softplus{}

	sigma2, err := linkfn.Values(link, tb.annot, theta)
	require.NoError(t, err)
	jac, err := linkfn.Jacobian(link, tb.annot, theta, 2)
	require.NoError(t, err)

	return likelihood.Input{
		Z: tb.z, Sigma2: sigma2, Jac: jac, Prec: tb.prec,
		SampleSize: tb.n, Intercept: intercept, InterceptFixed: fixed,
	}
}

// nllAt evaluates only the objective at θ (and intercept a).
func (tb *testBlock) nllAt(t *testing.T, theta []float64, a float64, fixed bool) float64 {
	t.Helper()
	out, err := likelihood.Evaluate(tb.input(t, theta, a, fixed))
	require.NoError(t, err)

	return out.NLL
}

// TestEvaluate_GradientMatchesNumeric: the analytic gradient must agree
// with central differences of the objective, including the free-intercept
// entry.
func TestEvaluate_GradientMatchesNumeric(t *testing.T) {
	tb := newTestBlock()
	theta := []float64{-6, 0.8}
	const a, h = 1.1, 1e-5

	out, err := likelihood.Evaluate(tb.input(t, theta, a, false))
	require.NoError(t, err)
	require.Len(t, out.Grad, 3)

	for k := 0; k < 2; k++ {
		up := append([]float64(nil), theta...)
		dn := append([]float64(nil), theta...)
		up[k] += h
		dn[k] -= h
		num := (tb.nllAt(t, up, a, false) - tb.nllAt(t, dn, a, false)) / (2 * h)
		assert.InDelta(t, num, out.Grad[k], 1e-4*(1+mathAbs(num)), "theta[%d]", k)
	}

	numA := (tb.nllAt(t, theta, a+h, false) - tb.nllAt(t, theta, a-h, false)) / (2 * h)
	assert.InDelta(t, numA, out.Grad[2], 1e-4*(1+mathAbs(numA)), "intercept")
}

// TestEvaluate_HessianMatchesFisherDefinition: the returned Hessian must
// equal ½·tr(M⁻¹∂Mₖ M⁻¹∂Mₗ) computed by brute force against an explicit
// inverse.
func TestEvaluate_HessianMatchesFisherDefinition(t *testing.T) {
	tb := newTestBlock()
	theta := []float64{-6, 0.8}
	const a = 1.1

	in := tb.input(t, theta, a, false)
	out, err := likelihood.Evaluate(in)
	require.NoError(t, err)

	m := len(tb.z)
	p := 3

	// Explicit M and its inverse.
	mm := mat.NewDense(m, m, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			v := a * tb.prec.At(i, j)
			if i == j {
				v += tb.n * in.Sigma2[i]
			}
			mm.Set(i, j, v)
		}
	}
	var minv mat.Dense
	require.NoError(t, minv.Inverse(mm))

	// ∂M per parameter as explicit dense matrices.
	dms := make([]*mat.Dense, p)
	for k := 0; k < 2; k++ {
		dm := mat.NewDense(m, m, nil)
		for i := 0; i < m; i++ {
			dm.Set(i, i, tb.n*in.Jac.At(i, k))
		}
		dms[k] = dm
	}
	dp := mat.NewDense(m, m, nil)
	dp.Copy(tb.prec)
	dms[2] = dp

	for k := 0; k < p; k++ {
		for l := 0; l < p; l++ {
			var ak, al mat.Dense
			ak.Mul(&minv, dms[k])
			al.Mul(&minv, dms[l])
			var prod mat.Dense
			prod.Mul(&ak, &al)
			want := 0.5 * mat.Trace(&prod)
			assert.InDelta(t, want, out.Hess.At(k, l), 1e-8*(1+mathAbs(want)), "H[%d][%d]", k, l)
		}
	}
}

// TestEvaluate_FixedInterceptShape: with a fixed intercept the gradient and
// Hessian cover the annotation coefficients only.
func TestEvaluate_FixedInterceptShape(t *testing.T) {
	tb := newTestBlock()
	out, err := likelihood.Evaluate(tb.input(t, []float64{-6, 0.8}, 1, true))
	require.NoError(t, err)

	assert.Len(t, out.Grad, 2)
	r, c := out.Hess.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
}

// TestEvaluate_PerVariantContributions: VarScore must reproduce
// ½n(M⁻¹ᵢᵢ − uᵢ²) and sum back into the base-coefficient gradient.
func TestEvaluate_PerVariantContributions(t *testing.T) {
	tb := newTestBlock()
	in := tb.input(t, []float64{-6, 0.8}, 1, true)
	in.PerVariant = true

	out, err := likelihood.Evaluate(in)
	require.NoError(t, err)
	require.Len(t, out.VarScore, 5)
	require.Len(t, out.VarHess, 5)

	// Per-variant scores weighted by the Jacobian's base column must
	// recover the base-coefficient gradient exactly.
	var want float64
	for i := 0; i < 5; i++ {
		want += out.VarScore[i] * in.Jac.At(i, 0)
	}
	assert.InDelta(t, want, out.Grad[0], 1e-10)

	for i := 0; i < 5; i++ {
		assert.Greater(t, out.VarHess[i], 0.0, "Fisher weight %d", i)
	}
}

// TestEvaluate_StochasticConvergesToExact: with a generous probe budget the
// Hutchinson kernel must land near the exact one, deterministically per
// seed.
func TestEvaluate_StochasticConvergesToExact(t *testing.T) {
	tb := newTestBlock()
	theta := []float64{-6, 0.8}

	exact, err := likelihood.Evaluate(tb.input(t, theta, 1.1, false))
	require.NoError(t, err)

	in := tb.input(t, theta, 1.1, false)
	in.TraceSamples = 20000
	in.Seed = 42
	st, err := likelihood.Evaluate(in)
	require.NoError(t, err)

	assert.InDelta(t, exact.NLL, st.NLL, 1e-12, "objective has no stochastic part")
	for k := range exact.Grad {
		assert.InDelta(t, exact.Grad[k], st.Grad[k], 0.05*(1+mathAbs(exact.Grad[k])), "grad[%d]", k)
	}
	for k := 0; k < 3; k++ {
		for l := 0; l < 3; l++ {
			assert.InDelta(t, exact.Hess.At(k, l), st.Hess.At(k, l),
				0.1*(1+mathAbs(exact.Hess.At(k, l))), "hess[%d][%d]", k, l)
		}
	}

	// Same seed ⇒ bitwise identical.
	again, err := likelihood.Evaluate(in)
	require.NoError(t, err)
	assert.Equal(t, st.Grad, again.Grad)
}

// TestEvaluate_InputValidation: malformed inputs surface sentinels before
// any numerics run.
func TestEvaluate_InputValidation(t *testing.T) {
	tb := newTestBlock()

	in := tb.input(t, []float64{-6, 0.8}, 1, true)
	in.SampleSize = 0
	_, err := likelihood.Evaluate(in)
	assert.ErrorIs(t, err, likelihood.ErrBadInput)

	in = tb.input(t, []float64{-6, 0.8}, 1, true)
	in.Sigma2 = in.Sigma2[:3]
	_, err = likelihood.Evaluate(in)
	assert.ErrorIs(t, err, likelihood.ErrDimensionMismatch)

	in = tb.input(t, []float64{-6, 0.8}, 1, true)
	in.Prec = mat.NewSymDense(5, nil) // all-zero: not PD
	_, err = likelihood.Evaluate(in)
	assert.ErrorIs(t, err, likelihood.ErrPrecisionNotPD)
}

func mathAbs(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}
