// SPDX-License-Identifier: MIT
// Package estimate: run configuration.

package estimate

import (
	"log/slog"

	"github.com/katalvlaran/greml/ldblock"
	"github.com/katalvlaran/greml/linkfn"
	"github.com/katalvlaran/greml/newton"
)

// DefaultInterceptInit is the intercept's starting (or pinned) value.
const DefaultInterceptInit = 1.0

// minInitHer floors the mean-χ² heritability initializer so the link
// inverse stays defined for under-powered data.
const minInitHer = 1e-6

// Config configures one Run. The zero value is NOT usable; start from
// DefaultConfig and override.
type Config struct {
	// SampleSize is the GWAS sample size n. Required.
	SampleSize float64

	// Link maps annotations to per-variant heritability. Defaults to
	// Softplus.
	Link linkfn.Link

	// InterceptFixed pins the intercept at InterceptInit instead of
	// estimating it as the trailing parameter.
	InterceptFixed bool

	// InterceptInit is the intercept's starting value - and, when
	// InterceptFixed, its pinned value. Defaults to DefaultInterceptInit.
	InterceptInit float64

	// Policy and ChiSqThreshold drive the large-effect locus filter.
	// ChiSqThreshold ≤ 0 selects ldblock.DefaultThreshold(SampleSize).
	Policy         ldblock.Policy
	ChiSqThreshold float64

	// NormalizeAnnot divides every non-base annotation column by its
	// global maximum absolute value before the policy column is appended.
	NormalizeAnnot bool

	// TraceSamples and Seed select and seed stochastic trace estimation in
	// the likelihood kernel; TraceSamples = 0 keeps evaluation exact.
	TraceSamples int
	Seed         uint64

	// Newton holds the optimizer knobs. Initialize from
	// newton.DefaultOptions (DefaultConfig does).
	Newton newton.Options

	// RefCol is the reference annotation column for enrichment (the base
	// column by default).
	RefCol int

	// NullFit additionally collects per-variant score and Fisher
	// contributions at the converged parameters.
	NullFit bool

	// Epsilon regularizes near-singular inference systems; ≤ 0 selects
	// the inference default.
	Epsilon float64

	// Workers bounds parallel block evaluation everywhere; ≤ 0 means
	// GOMAXPROCS.
	Workers int

	// Logger receives warnings (dropped blocks, degenerate proxies,
	// fallbacks); nil = silent.
	Logger *slog.Logger
}

// DefaultConfig returns a usable configuration for the given sample size:
// softplus link, free intercept starting at 1, keep policy, exact
// evaluation, default optimizer options.
func DefaultConfig(sampleSize float64) Config {
	return Config{
		SampleSize:    sampleSize,
		Link:          linkfn.Softplus{},
		InterceptInit: DefaultInterceptInit,
		Policy:        ldblock.PolicyKeep,
		Newton:        newton.DefaultOptions(),
	}
}

func (c *Config) validate() error {
	if c.SampleSize <= 0 {
		return ErrBadConfig
	}
	if c.Link == nil {
		c.Link = linkfn.Softplus{}
	}
	if c.InterceptInit == 0 {
		c.InterceptInit = DefaultInterceptInit
	}
	if c.InterceptInit < 0 {
		return ErrBadConfig
	}

	return nil
}
