// SPDX-License-Identifier: MIT
// Package inference: the block→likelihood bridge shared with the
// estimation pipeline.

package inference

import (
	"github.com/katalvlaran/greml/ldblock"
	"github.com/katalvlaran/greml/likelihood"
	"github.com/katalvlaran/greml/linkfn"
)

// seedMix decorrelates per-block probe streams from one run seed.
const seedMix = 0x9e3779b97f4a7c15

// ModelSpec fixes everything about the statistical model that is not a
// parameter: sample size, link, intercept handling and the trace-sampling
// mode. Both the optimizer loop and the inference pass assemble their
// likelihood inputs through the same spec, so they can never disagree on
// the model.
type ModelSpec struct {
	// SampleSize is the GWAS sample size n.
	SampleSize float64

	// Link maps annotations to per-variant heritability.
	Link linkfn.Link

	// InterceptFixed pins the intercept at FixedIntercept; otherwise the
	// trailing parameter is the live intercept.
	InterceptFixed bool
	FixedIntercept float64

	// TraceSamples and Seed select and seed the stochastic-trace kernel;
	// TraceSamples = 0 keeps evaluation exact.
	TraceSamples int
	Seed         uint64
}

// Validate checks the spec's domain.
func (s *ModelSpec) Validate() error {
	if s.Link == nil || s.SampleSize <= 0 {
		return ErrBadSpec
	}
	if s.InterceptFixed && s.FixedIntercept <= 0 {
		return ErrBadSpec
	}

	return nil
}

// NumParams returns the parameter count for blocks with annK annotation
// columns.
func (s *ModelSpec) NumParams(annK int) int {
	if s.InterceptFixed {
		return annK
	}

	return annK + 1
}

// Intercept extracts the current intercept value from theta.
func (s *ModelSpec) Intercept(theta []float64) float64 {
	if s.InterceptFixed {
		return s.FixedIntercept
	}

	return theta[len(theta)-1]
}

// BlockInput assembles the oracle input for one reconciled block at theta:
// link values and Jacobian evaluated per annotation row, then aggregated
// onto summary-statistic ordinals through the block's row map.
func (s *ModelSpec) BlockInput(b *ldblock.Block, blockIdx int, theta []float64, perVariant bool) (likelihood.Input, error) {
	vals, err := linkfn.Values(s.Link, b.Annot, theta)
	if err != nil {
		return likelihood.Input{}, err
	}
	sigma2, err := b.Aggregate(vals)
	if err != nil {
		return likelihood.Input{}, err
	}

	annK := b.NumAnnot()
	jacRows, err := linkfn.Jacobian(s.Link, b.Annot, theta, annK)
	if err != nil {
		return likelihood.Input{}, err
	}
	jac, err := b.AggregateRows(jacRows)
	if err != nil {
		return likelihood.Input{}, err
	}

	return likelihood.Input{
		Z:              b.Z,
		Sigma2:         sigma2,
		Jac:            jac,
		Prec:           b.Prec,
		SampleSize:     s.SampleSize,
		Intercept:      s.Intercept(theta),
		InterceptFixed: s.InterceptFixed,
		TraceSamples:   s.TraceSamples,
		Seed:           s.Seed + uint64(blockIdx)*seedMix,
		PerVariant:     perVariant,
	}, nil
}
