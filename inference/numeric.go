// SPDX-License-Identifier: MIT
// Package inference: small numeric primitives (pseudo-inverse, normal
// tests) on top of gonum.

package inference

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// pinv computes the Moore–Penrose pseudo-inverse of a symmetric matrix via
// thin SVD, zeroing singular values below a relative tolerance.
func pinv(a *mat.SymDense) (*mat.SymDense, error) {
	n := a.SymmetricDim()

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return nil, ErrSingular
	}

	s := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	tol := 1e-14 * float64(n)
	var smax float64
	for _, sv := range s {
		if sv > smax {
			smax = sv
		}
	}
	cut := tol * smax

	// V · diag(1/s) · Uᵀ, assembled symmetric.
	scaled := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		inv := 0.0
		if s[j] > cut {
			inv = 1.0 / s[j]
		}
		for i := 0; i < n; i++ {
			scaled.Set(i, j, v.At(i, j)*inv)
		}
	}
	var dense mat.Dense
	dense.Mul(scaled, u.T())

	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, 0.5*(dense.At(i, j)+dense.At(j, i)))
		}
	}

	return out, nil
}

// twoTailedP is the two-tailed standard-normal p-value of z. Non-finite z
// (zero SE) yields p = 1: no information, no significance.
func twoTailedP(z float64) float64 {
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return 1
	}

	return 2 * distuv.UnitNormal.CDF(-math.Abs(z))
}

// quadForm returns j·cov·jᵀ for a single Jacobian row j.
func quadForm(j []float64, cov *mat.SymDense) float64 {
	n := len(j)
	var out float64
	for a := 0; a < n; a++ {
		if j[a] == 0 {
			continue
		}
		for b := 0; b < n; b++ {
			out += j[a] * cov.At(a, b) * j[b]
		}
	}

	return out
}

// seFromVar maps a variance to a standard error, guarding tiny negative
// round-off to zero.
func seFromVar(v float64) float64 {
	if v <= 0 {
		return 0
	}

	return math.Sqrt(v)
}
