// SPDX-License-Identifier: MIT
// Package builder: functional options.
//
// Contract (strict):
//   - Options are functional (type Option func(*config)).
//   - Option constructors VALIDATE and PANIC on meaningless inputs;
//     constructors themselves never panic, they return sentinel errors.
//   - Determinism is explicit: seeding is done via WithSeed.
//   - No hidden globals; everything flows through config.

package builder

import (
	"github.com/katalvlaran/greml/linkfn"
)

// Option customizes a fixture constructor by mutating a config instance
// before any simulation begins.
type Option func(*config)

// config is the resolved fixture configuration.
type config struct {
	link        linkfn.Link
	sampleSize  float64
	intercept   float64
	seed        uint64
	annotRows   []int
	sumstatRows []int
}

func defaultConfig() config {
	return config{
		link:       linkfn.Softplus{},
		sampleSize: 1e5,
		intercept:  1,
	}
}

func resolve(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

// WithLink sets the heritability link. Panics on nil.
func WithLink(l linkfn.Link) Option {
	if l == nil {
		panic("builder: WithLink(nil)")
	}
	return func(c *config) { c.link = l }
}

// WithSampleSize sets the GWAS sample size n. Panics on n ≤ 0.
func WithSampleSize(n float64) Option {
	if n <= 0 {
		panic("builder: WithSampleSize requires n > 0")
	}
	return func(c *config) { c.sampleSize = n }
}

// WithIntercept sets the marginal intercept a. Panics on a ≤ 0.
func WithIntercept(a float64) Option {
	if a <= 0 {
		panic("builder: WithIntercept requires a > 0")
	}
	return func(c *config) { c.intercept = a }
}

// WithSeed seeds the PCG source behind every stochastic draw. Same seed,
// same block.
func WithSeed(seed uint64) Option {
	return func(c *config) { c.seed = seed }
}

// WithAnnotRows restricts annotation coverage to the given precision-matrix
// positions (default: every variant). The annotation matrix passed to Block
// must then have exactly len(rows) rows.
func WithAnnotRows(rows []int) Option {
	return func(c *config) { c.annotRows = rows }
}

// WithSumstatRows restricts summary statistics to the given precision-matrix
// positions (default: every variant).
func WithSumstatRows(rows []int) Option {
	return func(c *config) { c.sumstatRows = rows }
}
