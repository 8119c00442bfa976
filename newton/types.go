// SPDX-License-Identifier: MIT
// Package newton: problem contract, options, trace records.

package newton

import (
	"log/slog"
	"runtime"
	"time"

	"gonum.org/v1/gonum/mat"
)

// BlockEval is one block's contribution at a parameter vector. Grad and
// Hess may be nil when the evaluation was objective-only.
type BlockEval struct {
	NLL  float64
	Grad []float64
	Hess *mat.SymDense
}

// EvalFunc evaluates one block at theta. It MUST be pure and safe for
// concurrent invocation: read-only inputs, no shared mutable captures.
// When wantDeriv is false the implementation may skip gradient and Hessian
// work and leave those fields nil.
type EvalFunc func(block int, theta []float64, wantDeriv bool) (BlockEval, error)

// Problem describes one minimization: per-block negative log-likelihood
// contributions summed over NumBlocks independent blocks.
type Problem struct {
	NumBlocks int
	NumParams int
	Eval      EvalFunc
}

// Defaults - single source of truth for zero-value behavior.
const (
	// DefaultTol is the per-iteration convergence tolerance.
	DefaultTol = 1e-4

	// DefaultMinIter is the minimum iteration count before the convergence
	// window is consulted; it is also the window length.
	DefaultMinIter = 5

	// DefaultMaxIter is the hard outer-iteration cap.
	DefaultMaxIter = 100

	// DefaultInitPenalty is the initial trust-region penalty λ.
	DefaultInitPenalty = 1e-3

	// DefaultScalar multiplies/divides λ on shrink/expand.
	DefaultScalar = 10.0

	// DefaultRhoLower is the acceptance bound on ρ = |Δactual/Δpredicted|.
	DefaultRhoLower = 0.05

	// DefaultRhoUpper is the expansion bound on ρ.
	DefaultRhoUpper = 0.75

	// DefaultInnerMax caps candidate attempts per outer iteration.
	DefaultInnerMax = 30

	// DefaultMaxRetries caps λ-doubling in the non-trust-region path. The
	// classical scheme retries without bound; a ceiling keeps a degenerate
	// Hessian from looping forever.
	DefaultMaxRetries = 64

	// tinyRidge scales the mean-diagonal identity ridge added to every
	// damped system.
	tinyRidge = 1e-8
)

// Options configures Minimize. The zero value is NOT usable; start from
// DefaultOptions and override.
type Options struct {
	// Tol, MinIter, MaxIter govern convergence; see package doc.
	Tol     float64
	MinIter int
	MaxIter int

	// TrustRegion selects adaptive step control (default). When false the
	// plain damped-Newton path with λ-doubling retries is used.
	TrustRegion bool

	// InitPenalty, Scalar, RhoLower, RhoUpper, ResetPenalty, InnerMax are
	// the trust-region knobs. ResetPenalty restores λ = InitPenalty at the
	// start of every outer iteration; otherwise λ carries over.
	InitPenalty  float64
	Scalar       float64
	RhoLower     float64
	RhoUpper     float64
	ResetPenalty bool
	InnerMax     int

	// GradCheck additionally rejects candidates whose gradient norm more
	// than doubled.
	GradCheck bool

	// MaxRetries caps λ-doubling in the non-trust-region path.
	MaxRetries int

	// Workers bounds parallel block evaluation; ≤ 0 means GOMAXPROCS.
	Workers int

	// Logger receives warnings (exhausted searches, fallbacks); nil = silent.
	Logger *slog.Logger
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Tol:          DefaultTol,
		MinIter:      DefaultMinIter,
		MaxIter:      DefaultMaxIter,
		TrustRegion:  true,
		InitPenalty:  DefaultInitPenalty,
		Scalar:       DefaultScalar,
		RhoLower:     DefaultRhoLower,
		RhoUpper:     DefaultRhoUpper,
		ResetPenalty: true,
		InnerMax:     DefaultInnerMax,
		MaxRetries:   DefaultMaxRetries,
		Workers:      runtime.GOMAXPROCS(0),
	}
}

func (o *Options) validate() error {
	if o.Tol <= 0 || o.MinIter < 1 || o.MaxIter < o.MinIter {
		return ErrBadOptions
	}
	if o.TrustRegion {
		if o.InitPenalty <= 0 || o.Scalar <= 1 || o.InnerMax < 1 {
			return ErrBadOptions
		}
		if o.RhoLower < 0 || o.RhoUpper <= o.RhoLower {
			return ErrBadOptions
		}
	} else if o.MaxRetries < 1 {
		return ErrBadOptions
	}

	return nil
}

func (o *Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}

	return runtime.GOMAXPROCS(0)
}

// Status is the optimizer's terminal state.
type Status int

const (
	// StatusInit: not yet run.
	StatusInit Status = iota
	// StatusIterating: run in progress (visible only to trace consumers).
	StatusIterating
	// StatusConverged: the convergence window criterion was met.
	StatusConverged
	// StatusMaxIters: the hard iteration cap was reached first.
	StatusMaxIters
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusInit:
		return "init"
	case StatusIterating:
		return "iterating"
	case StatusConverged:
		return "converged"
	case StatusMaxIters:
		return "max_iters_reached"
	default:
		return "unknown"
	}
}

// Iteration is one outer-iteration trace record.
type Iteration struct {
	// Index counts outer iterations from 1.
	Index int

	// Params and NLL are the state AFTER this iteration.
	Params []float64
	NLL    float64

	// Grad and GradNorm are the aggregated gradient at the post-iteration
	// parameters.
	Grad     []float64
	GradNorm float64

	// Penalty is the trust-region λ after the step search.
	Penalty float64

	// Accepted reports whether any candidate step was taken.
	Accepted bool

	// AggSeconds / SearchSeconds split the iteration's wall time between
	// gradient/Hessian aggregation and the candidate step search.
	AggSeconds    float64
	SearchSeconds float64
}

// Fit is the optimizer's result: the frozen parameter vector plus the full
// aggregated state at convergence, ready for the inference engine.
type Fit struct {
	Params []float64
	NLL    float64
	Grad   []float64
	Hess   *mat.SymDense

	Status     Status
	Iterations []Iteration
	Elapsed    time.Duration
}
