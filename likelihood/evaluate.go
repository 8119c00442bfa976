// SPDX-License-Identifier: MIT
// Package likelihood: the oracle entry point and the exact kernel.

package likelihood

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const log2Pi = 1.8378770664093453

// Input is the oracle's complete per-block input. All fields are read-only
// to Evaluate; the caller owns them.
type Input struct {
	// Z holds the block's Z-scores, aligned with Prec.
	Z []float64

	// Sigma2 is the per-unique-variant heritability vector, aligned with Z.
	Sigma2 []float64

	// Jac is the m × K Jacobian ∂σ²ᵢ/∂θₖ over the annotation coefficients.
	Jac *mat.Dense

	// Prec is the block's precision matrix.
	Prec mat.Symmetric

	// SampleSize is the GWAS sample size n.
	SampleSize float64

	// Intercept is the current intercept value a; InterceptFixed reports
	// whether it is a constant or the trailing free parameter.
	Intercept      float64
	InterceptFixed bool

	// TraceSamples selects the kernel: 0 = exact, > 0 = Hutchinson trace
	// estimation with that many Rademacher probes.
	TraceSamples int

	// Seed drives the probe RNG; same Seed, same probes, same output.
	Seed uint64

	// PerVariant requests per-variant score and Fisher contributions
	// (always computed by the exact kernel).
	PerVariant bool
}

// Output bundles the oracle's results. Grad and Hess cover the annotation
// coefficients plus, when the intercept is free, one trailing entry.
type Output struct {
	NLL  float64
	Grad []float64
	Hess *mat.SymDense

	// VarScore[i] = ∂nll/∂σ²ᵢ and VarHess[i] its diagonal Fisher weight;
	// populated only when Input.PerVariant.
	VarScore []float64
	VarHess  []float64
}

// NumParams returns the parameter count the oracle will differentiate over.
func (in *Input) NumParams() int {
	_, k := in.Jac.Dims()
	if in.InterceptFixed {
		return k
	}

	return k + 1
}

// Evaluate computes the block's negative log-likelihood, gradient and
// Fisher Hessian. Pure and side-effect-free; safe for concurrent use.
func Evaluate(in Input) (Output, error) {
	if err := in.validate(); err != nil {
		return Output{}, err
	}
	st, err := in.factorize()
	if err != nil {
		return Output{}, err
	}

	if in.TraceSamples > 0 && !in.PerVariant {
		return evalStochastic(&in, st)
	}

	return evalExact(&in, st)
}

// Objective computes only the negative log-likelihood, skipping all
// derivative work. The optimizer's step search probes candidates with this.
func Objective(in Input) (float64, error) {
	if err := in.validate(); err != nil {
		return 0, err
	}
	st, err := in.factorize()
	if err != nil {
		return 0, err
	}

	return st.nll, nil
}

// state carries the shared per-call factorization products.
type state struct {
	m, k, p int
	cholM   mat.Cholesky
	y       *mat.VecDense // P·z
	u       *mat.VecDense // M⁻¹·y
	nll     float64
}

func (in *Input) validate() error {
	if in.SampleSize <= 0 || in.Intercept <= 0 {
		return ErrBadInput
	}
	m := len(in.Z)
	jr, _ := in.Jac.Dims()
	if len(in.Sigma2) != m || jr != m || in.Prec.SymmetricDim() != m {
		return ErrDimensionMismatch
	}

	return nil
}

// factorize builds M(θ), factorizes it and P, and evaluates the nll.
func (in *Input) factorize() (*state, error) {
	m := len(in.Z)
	_, k := in.Jac.Dims()
	st := &state{m: m, k: k, p: in.NumParams()}

	msym := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			v := in.Intercept * in.Prec.At(i, j)
			if i == j {
				v += in.SampleSize * in.Sigma2[i]
			}
			msym.SetSym(i, j, v)
		}
	}
	if !st.cholM.Factorize(msym) {
		return nil, ErrModelNotPD
	}

	psym := mat.NewSymDense(m, nil)
	psym.CopySym(in.Prec)
	var cholP mat.Cholesky
	if !cholP.Factorize(psym) {
		return nil, ErrPrecisionNotPD
	}

	st.y = mat.NewVecDense(m, nil)
	st.y.MulVec(in.Prec, mat.NewVecDense(m, in.Z))

	st.u = mat.NewVecDense(m, nil)
	if err := st.cholM.SolveVecTo(st.u, st.y); err != nil {
		return nil, ErrModelNotPD
	}

	st.nll = 0.5 * (st.cholM.LogDet() - 2*cholP.LogDet() + mat.Dot(st.y, st.u) + float64(m)*log2Pi)

	return st, nil
}

// evalExact computes gradient and Fisher Hessian from the full M⁻¹.
func evalExact(in *Input, st *state) (Output, error) {
	var minv mat.SymDense
	if err := st.cholM.InverseTo(&minv); err != nil {
		return Output{}, ErrModelNotPD
	}

	out := Output{NLL: st.nll, Grad: make([]float64, st.p)}
	n := in.SampleSize

	// Per-variant scores: wᵢ = ½n·(M⁻¹ᵢᵢ − uᵢ²); gradₖ = Σᵢ wᵢ·Jᵢₖ.
	w := make([]float64, st.m)
	for i := 0; i < st.m; i++ {
		ui := st.u.AtVec(i)
		w[i] = 0.5 * n * (minv.At(i, i) - ui*ui)
	}
	for k := 0; k < st.k; k++ {
		var g float64
		for i := 0; i < st.m; i++ {
			g += w[i] * in.Jac.At(i, k)
		}
		out.Grad[k] = g
	}

	// Annotation Fisher block: ½n²·Jᵀ(M⁻¹∘M⁻¹)J.
	q := mat.NewDense(st.m, st.m, nil)
	for i := 0; i < st.m; i++ {
		for j := 0; j < st.m; j++ {
			v := minv.At(i, j)
			q.Set(i, j, v*v)
		}
	}
	var qj, hann mat.Dense
	qj.Mul(q, in.Jac)
	hann.Mul(in.Jac.T(), &qj)

	hess := mat.NewSymDense(st.p, nil)
	for k := 0; k < st.k; k++ {
		for l := k; l < st.k; l++ {
			hess.SetSym(k, l, 0.25*n*n*(hann.At(k, l)+hann.At(l, k)))
		}
	}

	if !in.InterceptFixed {
		fillInterceptExact(in, st, &minv, out.Grad, hess)
	}
	out.Hess = hess

	if in.PerVariant {
		out.VarScore = w
		out.VarHess = make([]float64, st.m)
		for i := 0; i < st.m; i++ {
			mii := minv.At(i, i)
			out.VarHess[i] = 0.5 * n * n * mii * mii
		}
	}

	return out, nil
}

// fillInterceptExact adds the trailing intercept row/column: ∂M/∂a = P.
func fillInterceptExact(in *Input, st *state, minv *mat.SymDense, grad []float64, hess *mat.SymDense) {
	n := in.SampleSize
	a := st.p - 1

	// Gradient: ½(tr(M⁻¹P) − uᵀPu).
	var trMP float64
	for i := 0; i < st.m; i++ {
		for j := 0; j < st.m; j++ {
			trMP += minv.At(i, j) * in.Prec.At(i, j)
		}
	}
	pu := mat.NewVecDense(st.m, nil)
	pu.MulVec(in.Prec, st.u)
	grad[a] = 0.5 * (trMP - mat.Dot(st.u, pu))

	// Cross terms: ½n·Σᵢ(M⁻¹PM⁻¹)ᵢᵢ·Jᵢₖ; corner: ½·tr((M⁻¹P)²).
	var mp, s mat.Dense
	mp.Mul(minv, in.Prec)
	s.Mul(&mp, minv)
	for k := 0; k < st.k; k++ {
		var h float64
		for i := 0; i < st.m; i++ {
			h += s.At(i, i) * in.Jac.At(i, k)
		}
		hess.SetSym(k, a, 0.5*n*h)
	}

	var corner float64
	for i := 0; i < st.m; i++ {
		for j := 0; j < st.m; j++ {
			corner += mp.At(i, j) * mp.At(j, i)
		}
	}
	hess.SetSym(a, a, 0.5*corner)
}

// gradQuadratic returns the exact −½uᵀ∂Mₖu part shared by both kernels.
func gradQuadratic(in *Input, st *state) []float64 {
	quad := make([]float64, st.p)
	for k := 0; k < st.k; k++ {
		var g float64
		for i := 0; i < st.m; i++ {
			ui := st.u.AtVec(i)
			g += ui * ui * in.Jac.At(i, k)
		}
		quad[k] = -0.5 * in.SampleSize * g
	}
	if !in.InterceptFixed {
		pu := mat.NewVecDense(st.m, nil)
		pu.MulVec(in.Prec, st.u)
		quad[st.p-1] = -0.5 * mat.Dot(st.u, pu)
	}

	return quad
}

// dot is a tiny alias to keep stochastic accumulation readable.
func dot(a, b []float64) float64 { return floats.Dot(a, b) }

// symmetrize folds a near-symmetric dense accumulator into a SymDense.
func symmetrize(h *mat.Dense, p int) *mat.SymDense {
	out := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			out.SetSym(i, j, 0.5*(h.At(i, j)+h.At(j, i)))
		}
	}

	return out
}

// finiteOrZero guards probe accumulators against pathological blocks.
func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}

	return v
}
