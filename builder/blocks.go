// SPDX-License-Identifier: MIT
// Package builder: precision topologies, annotation layouts, and model
// simulation.

package builder

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/greml/ldblock"
	"github.com/katalvlaran/greml/linkfn"
)

// pcgMix decorrelates the second PCG word from the seed.
const pcgMix = 0xda942042e4dd58b5

// Identity returns the m×m identity precision matrix (uncorrelated
// variants). Returns nil on m ≤ 0.
func Identity(m int) *mat.SymDense {
	if m <= 0 {
		return nil
	}
	p := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		p.SetSym(i, i, 1)
	}

	return p
}

// AR1 returns the tridiagonal precision matrix of an AR(1) correlation
// structure R[i][j] = rho^|i−j|.
func AR1(m int, rho float64) (*mat.SymDense, error) {
	if m <= 0 {
		return nil, ErrBadSize
	}
	if rho <= -1 || rho >= 1 {
		return nil, ErrBadCorrelation
	}

	p := mat.NewSymDense(m, nil)
	if m == 1 {
		p.SetSym(0, 0, 1)

		return p, nil
	}

	s := 1 / (1 - rho*rho)
	for i := 0; i < m; i++ {
		d := (1 + rho*rho) * s
		if i == 0 || i == m-1 {
			d = s
		}
		p.SetSym(i, i, d)
		if i+1 < m {
			p.SetSym(i, i+1, -rho*s)
		}
	}

	return p, nil
}

// Binary returns an m-row annotation matrix: the constant base column plus
// one 0/1 indicator column per flag set. Returns nil on invalid input.
func Binary(m int, flags ...[]int) *mat.Dense {
	if m <= 0 {
		return nil
	}
	a := mat.NewDense(m, 1+len(flags), nil)
	for i := 0; i < m; i++ {
		a.Set(i, 0, 1)
	}
	for j, set := range flags {
		for _, i := range set {
			if i < 0 || i >= m {
				return nil
			}
			a.Set(i, j+1, 1)
		}
	}

	return a
}

// Block simulates one LD block at the given parameters: per-variant
// heritability through the link, marginal covariance
// a·R + n·R·diag(σ²)·R with R = prec⁻¹, and a deterministic Gaussian draw
// of the Z-scores. The returned block is unreconciled - feed it to the
// pipeline exactly as real data would arrive.
//
// annot must have one row per covered position (all positions unless
// WithAnnotRows narrows coverage) and len(theta) columns.
func Block(prec *mat.SymDense, annot *mat.Dense, theta []float64, opts ...Option) (*ldblock.Block, error) {
	if prec == nil || annot == nil {
		return nil, ErrDimensionMismatch
	}
	cfg := resolve(opts)

	m := prec.SymmetricDim()
	if m <= 0 {
		return nil, ErrBadSize
	}
	annotRows := cfg.annotRows
	if annotRows == nil {
		annotRows = iota0(m)
	}
	sumstatRows := cfg.sumstatRows
	if sumstatRows == nil {
		sumstatRows = iota0(m)
	}
	rows, cols := annot.Dims()
	if rows != len(annotRows) || cols != len(theta) {
		return nil, ErrDimensionMismatch
	}
	for _, pos := range annotRows {
		if pos < 0 || pos >= m {
			return nil, ErrDimensionMismatch
		}
	}
	for _, pos := range sumstatRows {
		if pos < 0 || pos >= m {
			return nil, ErrDimensionMismatch
		}
	}

	sigma2, err := perVariantHer(annot, annotRows, theta, cfg.link, m)
	if err != nil {
		return nil, err
	}
	z, err := simulateZ(prec, sigma2, sumstatRows, &cfg)
	if err != nil {
		return nil, err
	}

	precCopy := mat.NewSymDense(m, nil)
	precCopy.CopySym(prec)
	annotCopy := mat.NewDense(rows, cols, nil)
	annotCopy.Copy(annot)

	return &ldblock.Block{
		Prec:       precCopy,
		AnnotIdx:   append([]int(nil), annotRows...),
		SumstatIdx: append([]int(nil), sumstatRows...),
		Z:          z,
		Annot:      annotCopy,
	}, nil
}

// perVariantHer spreads link values over precision positions; uncovered
// positions contribute nothing.
func perVariantHer(annot *mat.Dense, annotRows []int, theta []float64, link linkfn.Link, m int) ([]float64, error) {
	vals, err := linkfn.Values(link, annot, theta)
	if err != nil {
		return nil, err
	}
	sigma2 := make([]float64, m)
	for i, pos := range annotRows {
		sigma2[pos] = vals[i]
	}

	return sigma2, nil
}

// simulateZ draws z ~ N(0, C) over the summary-statistic positions, where
// C is the sumstat subset of a·R + n·R·diag(σ²)·R.
func simulateZ(prec *mat.SymDense, sigma2 []float64, sumstatRows []int, cfg *config) ([]float64, error) {
	m := prec.SymmetricDim()

	var cholP mat.Cholesky
	if !cholP.Factorize(prec) {
		return nil, ErrNotPositiveDefinite
	}
	r := mat.NewSymDense(m, nil)
	if err := cholP.InverseTo(r); err != nil {
		return nil, ErrNotPositiveDefinite
	}

	// rd = R·diag(σ²), rdr = R·diag(σ²)·R.
	rd := mat.NewDense(m, m, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			rd.Set(i, j, r.At(i, j)*sigma2[j])
		}
	}
	var rdr mat.Dense
	rdr.Mul(rd, r)

	s := len(sumstatRows)
	cov := mat.NewSymDense(s, nil)
	for i := 0; i < s; i++ {
		for j := i; j < s; j++ {
			pi, pj := sumstatRows[i], sumstatRows[j]
			v := cfg.intercept*r.At(pi, pj) + cfg.sampleSize*0.5*(rdr.At(pi, pj)+rdr.At(pj, pi))
			cov.SetSym(i, j, v)
		}
	}

	var cholC mat.Cholesky
	if !cholC.Factorize(cov) {
		return nil, ErrNotPositiveDefinite
	}
	var lower mat.TriDense
	cholC.LTo(&lower)

	rng := rand.New(rand.NewPCG(cfg.seed, cfg.seed^pcgMix))
	eps := mat.NewVecDense(s, nil)
	for i := 0; i < s; i++ {
		eps.SetVec(i, rng.NormFloat64())
	}
	z := mat.NewVecDense(s, nil)
	z.MulVec(&lower, eps)

	return append([]float64(nil), z.RawVector().Data...), nil
}

func iota0(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}

	return out
}
