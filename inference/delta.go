// SPDX-License-Identifier: MIT
// Package inference: delta-method propagation into heritability and
// enrichment space.

package inference

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/greml/ldblock"
)

// derived caches the point estimates and Jacobians every covariance
// estimator is propagated through: per-annotation heritability
// hₖ = Σᵢ aᵢₖ·σ²ᵢ, variant counts cₖ = Σᵢ aᵢₖ, and the K×p heritability
// Jacobian Jh[k][j] = Σᵢ aᵢₖ·σ²'(tᵢ)·aᵢⱼ.
type derived struct {
	theta         []float64
	her           []float64
	counts        []float64
	jh            *mat.Dense
	refCol        int
	interceptFree bool
}

func deriveState(blocks []*ldblock.Block, theta []float64, kAnnot, p int, cfg *Config) (*derived, error) {
	st := &derived{
		theta:         theta,
		her:           make([]float64, kAnnot),
		counts:        make([]float64, kAnnot),
		jh:            mat.NewDense(kAnnot, p, nil),
		refCol:        cfg.RefCol,
		interceptFree: !cfg.Spec.InterceptFixed,
	}

	link := cfg.Spec.Link
	row := make([]float64, kAnnot)
	for _, b := range blocks {
		rows, _ := b.Annot.Dims()
		for i := 0; i < rows; i++ {
			mat.Row(row, i, b.Annot)
			t := floats.Dot(row, theta[:kAnnot])
			v := link.ValT(t)
			d := link.DerivT(t)
			for k := 0; k < kAnnot; k++ {
				if row[k] == 0 {
					continue
				}
				st.her[k] += row[k] * v
				st.counts[k] += row[k]
				for j := 0; j < kAnnot; j++ {
					st.jh.Set(k, j, st.jh.At(k, j)+row[k]*d*row[j])
				}
			}
		}
	}

	return st, nil
}

// enrichment returns per-annotation heritability share over variant share,
// normalized so that the reference column is exactly 1. Columns with no
// variants get NaN.
func (st *derived) enrichment() []float64 {
	kAnnot := len(st.her)
	out := make([]float64, kAnnot)

	refHer := st.her[st.refCol]
	refCount := st.counts[st.refCol]
	for k := 0; k < kAnnot; k++ {
		switch {
		case k == st.refCol:
			out[k] = 1 // by definition, exactly
		case st.counts[k] <= 0 || refHer <= 0 || refCount <= 0:
			out[k] = math.NaN()
		default:
			out[k] = (st.her[k] / st.counts[k]) / (refHer / refCount)
		}
	}

	return out
}

// buildEstimates propagates one coefficient covariance everywhere it is
// reported.
func buildEstimates(name string, cov *mat.SymDense, st *derived) *Estimates {
	p := len(st.theta)
	kAnnot := len(st.her)

	est := &Estimates{
		Name:     name,
		Cov:      cov,
		CoefSE:   make([]float64, p),
		CoefP:    make([]float64, p),
		HerSE:    make([]float64, kAnnot),
		EnrichSE: make([]float64, kAnnot),
		EnrichP:  make([]float64, kAnnot),
	}

	for j := 0; j < p; j++ {
		est.CoefSE[j] = seFromVar(cov.At(j, j))
		if est.CoefSE[j] > 0 {
			est.CoefP[j] = twoTailedP(st.theta[j] / est.CoefSE[j])
		} else {
			est.CoefP[j] = 1
		}
	}
	if st.interceptFree {
		est.InterceptSE = est.CoefSE[p-1]
	}

	jhRow := make([]float64, p)
	jhRef := make([]float64, p)
	mat.Row(jhRef, st.refCol, st.jh)

	refHer := st.her[st.refCol]
	refCount := st.counts[st.refCol]

	je := make([]float64, p)
	jd := make([]float64, p)
	for k := 0; k < kAnnot; k++ {
		mat.Row(jhRow, k, st.jh)
		est.HerSE[k] = seFromVar(quadForm(jhRow, cov))

		if k == st.refCol {
			// Reference slot: enrichment is 1 by definition; its variance
			// comes from the raw (non-quotient) gradient sum.
			est.EnrichSE[k] = est.HerSE[k]
			est.EnrichP[k] = 1
			continue
		}
		if st.counts[k] <= 0 || refHer <= 0 || refCount <= 0 {
			est.EnrichSE[k] = 0
			est.EnrichP[k] = 1
			continue
		}

		// Quotient rule: Je = (c_ref/cₖ)·(G·Jhₖ − hₖ·Jh_ref)/G².
		scale := refCount / st.counts[k]
		for j := 0; j < p; j++ {
			je[j] = scale * (refHer*jhRow[j] - st.her[k]*jhRef[j]) / (refHer * refHer)
		}
		est.EnrichSE[k] = seFromVar(quadForm(je, cov))

		// Enrichment test: per-variant heritability of k against the
		// reference, hₖ/cₖ − h_ref/c_ref, under the joint covariance.
		diff := st.her[k]/st.counts[k] - refHer/refCount
		for j := 0; j < p; j++ {
			jd[j] = jhRow[j]/st.counts[k] - jhRef[j]/refCount
		}
		if se := seFromVar(quadForm(jd, cov)); se > 0 {
			est.EnrichP[k] = twoTailedP(diff / se)
		} else {
			est.EnrichP[k] = 1
		}
	}

	return est
}
