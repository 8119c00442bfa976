// SPDX-License-Identifier: MIT
// Package inference: configuration and result records.

package inference

import (
	"log/slog"

	"gonum.org/v1/gonum/mat"
)

// DefaultEpsilon is the ridge added to the jackknife deletion systems and
// to zero Fisher diagonals.
const DefaultEpsilon = 1e-8

// MinJackknifeBlocks is the smallest block count the (B−2)-scaled
// jackknife covariance is defined for.
const MinJackknifeBlocks = 3

// Config drives Analyze. Zero values fall back to the documented defaults.
type Config struct {
	// Spec is the shared model bridge; must validate.
	Spec ModelSpec

	// RefCol is the reference annotation column for enrichment (default 0,
	// the constant-1 base annotation).
	RefCol int

	// Epsilon is the numerical regularization constant (default
	// DefaultEpsilon).
	Epsilon float64

	// NullFit additionally collects per-variant score/Hessian
	// contributions for downstream per-variant testing.
	NullFit bool

	// Workers bounds the parallel per-block recomputation; ≤ 0 means
	// GOMAXPROCS.
	Workers int

	// Logger receives warnings (zero Fisher diagonal, degenerate
	// jackknife); nil = silent.
	Logger *slog.Logger
}

// Estimates carries one covariance estimator propagated everywhere it is
// reported: coefficients, heritability, enrichment, intercept.
type Estimates struct {
	// Name identifies the estimator: "jackknife", "sandwich" or "naive".
	Name string

	// Cov is the p×p coefficient covariance.
	Cov *mat.SymDense

	// CoefSE / CoefP are per-parameter standard errors and two-tailed
	// normal p-values.
	CoefSE []float64
	CoefP  []float64

	// HerSE propagates Cov into per-annotation heritability space.
	HerSE []float64

	// EnrichSE / EnrichP cover enrichment: quotient-rule SEs and the
	// k-vs-reference test p-values. The reference entry has SE from the
	// raw gradient sum and p ≡ 1.
	EnrichSE []float64
	EnrichP  []float64

	// InterceptSE is the trailing-parameter SE; 0 when the intercept is
	// fixed.
	InterceptSE float64
}

// JackknifeRecord is the per-block deletion record.
type JackknifeRecord struct {
	// Deleted is the B×p matrix of leave-one-block-out estimates.
	Deleted *mat.Dense

	// DeletedHer is each deletion's total heritability.
	DeletedHer []float64

	// VarScore / VarHess hold per-variant score and Fisher contributions
	// per block, populated only under Config.NullFit.
	VarScore [][]float64
	VarHess  [][]float64
}

// Result is the complete inferential output at the converged parameters.
type Result struct {
	// Params echoes the converged coefficients; NLL the final objective.
	Params []float64
	NLL    float64

	// Intercept is the converged intercept value.
	Intercept float64

	// Heritability is the per-annotation-column heritability Σᵢ aᵢₖ·σ²ᵢ;
	// Counts the per-column variant counts Σᵢ aᵢₖ.
	Heritability []float64
	Counts       []float64

	// Enrichment is per-annotation heritability share over variant share,
	// normalized so the reference column is exactly 1.
	Enrichment []float64

	// Jackknife is nil when fewer than MinJackknifeBlocks blocks remain.
	Jackknife *Estimates
	Sandwich  *Estimates
	Naive     *Estimates

	// JackRec is the raw deletion record backing Jackknife.
	JackRec *JackknifeRecord
}
