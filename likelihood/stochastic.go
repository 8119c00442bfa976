// SPDX-License-Identifier: MIT
// Package likelihood: Hutchinson stochastic-trace kernel.
//
// tr(M⁻¹A) = E[vᵀM⁻¹Av] for Rademacher probes v, so every trace term of the
// gradient and Fisher Hessian is estimated from TraceSamples probes while
// the quadratic (u-based) terms stay exact. Probes come from a PCG stream
// seeded by Input.Seed: same seed, same probes, bitwise-identical output.

package likelihood

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// pcgStream is the fixed second PCG word; the per-block Seed is the first.
const pcgStream = 0x9e3779b97f4a7c15

func evalStochastic(in *Input, st *state) (Output, error) {
	n := in.SampleSize
	rng := rand.New(rand.NewPCG(in.Seed, pcgStream))

	// Annotation columns, pulled once.
	cols := make([][]float64, st.k)
	for k := 0; k < st.k; k++ {
		cols[k] = make([]float64, st.m)
		mat.Col(cols[k], k, in.Jac)
	}

	var (
		trGrad  = make([]float64, st.p)
		hessAcc = mat.NewDense(st.p, st.p, nil)
		v       = make([]float64, st.m)
		dv      = make([]float64, st.m) // ∂Mₗ·v scratch
		ds      = make([]float64, st.m) // ∂Mₖ·s scratch
		sVec    = mat.NewVecDense(st.m, nil)
		wVecs   = make([]*mat.VecDense, st.p)
	)
	for l := 0; l < st.p; l++ {
		wVecs[l] = mat.NewVecDense(st.m, nil)
	}

	for probe := 0; probe < in.TraceSamples; probe++ {
		for i := range v {
			if rng.Uint64()&1 == 0 {
				v[i] = 1
			} else {
				v[i] = -1
			}
		}

		if err := st.cholM.SolveVecTo(sVec, mat.NewVecDense(st.m, v)); err != nil {
			return Output{}, ErrModelNotPD
		}
		s := sVec.RawVector().Data

		// Gradient traces: tr(M⁻¹∂Mₖ) ≈ vᵀ∘s against each ∂Mₖ.
		for k := 0; k < st.k; k++ {
			var t float64
			for i := 0; i < st.m; i++ {
				t += v[i] * s[i] * cols[k][i]
			}
			trGrad[k] += finiteOrZero(n * t)
		}
		var pv *mat.VecDense
		if !in.InterceptFixed {
			pv = mat.NewVecDense(st.m, nil)
			pv.MulVec(in.Prec, mat.NewVecDense(st.m, v))
			trGrad[st.p-1] += finiteOrZero(dot(s, pv.RawVector().Data))
		}

		// Hessian probes: H̃ₖₗ += (∂Mₖs)ᵀ M⁻¹ (∂Mₗv).
		for l := 0; l < st.p; l++ {
			applyDM(in, cols, l, st, v, dv, pv)
			if err := st.cholM.SolveVecTo(wVecs[l], mat.NewVecDense(st.m, dv)); err != nil {
				return Output{}, ErrModelNotPD
			}
		}
		var ps *mat.VecDense
		if !in.InterceptFixed {
			ps = mat.NewVecDense(st.m, nil)
			ps.MulVec(in.Prec, sVec)
		}
		for k := 0; k < st.p; k++ {
			applyDM(in, cols, k, st, s, ds, ps)
			for l := 0; l < st.p; l++ {
				hessAcc.Set(k, l, hessAcc.At(k, l)+finiteOrZero(dot(ds, wVecs[l].RawVector().Data)))
			}
		}
	}

	inv := 1.0 / float64(in.TraceSamples)
	quad := gradQuadratic(in, st)
	out := Output{NLL: st.nll, Grad: make([]float64, st.p)}
	for k := 0; k < st.p; k++ {
		out.Grad[k] = 0.5*trGrad[k]*inv + quad[k]
	}
	hessAcc.Scale(0.5*inv, hessAcc)
	out.Hess = symmetrize(hessAcc, st.p)

	return out, nil
}

// applyDM writes ∂Mₗ·x into dst: n·Jₗ∘x for annotation parameters, P·x for
// the free intercept (precomputed as px by the caller).
func applyDM(in *Input, cols [][]float64, l int, st *state, x, dst []float64, px *mat.VecDense) {
	if !in.InterceptFixed && l == st.p-1 {
		copy(dst, px.RawVector().Data)

		return
	}
	for i := 0; i < st.m; i++ {
		dst[i] = in.SampleSize * cols[l][i] * x[i]
	}
}
