// SPDX-License-Identifier: MIT
// Package estimate: the end-to-end pipeline.

package estimate

import (
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/greml/inference"
	"github.com/katalvlaran/greml/ldblock"
	"github.com/katalvlaran/greml/likelihood"
	"github.com/katalvlaran/greml/newton"
)

// BlockProxies records the LD-proxy substitutions made while reconciling
// one input block. Block is the index into Run's input slice.
type BlockProxies struct {
	Block   int
	Records []ldblock.ProxyRecord
}

// Result bundles everything one Run produces.
type Result struct {
	// Fit is the optimizer's terminal state, including the full iteration
	// trace.
	Fit *newton.Fit

	// Inference carries point estimates, the three covariance estimators
	// and the jackknife record.
	Inference *inference.Result

	// Proxies lists per-block LD-proxy substitutions, input order.
	Proxies []BlockProxies

	// NumBlocks counts the blocks that entered the optimizer.
	NumBlocks int

	// DroppedEmpty and DroppedLargeEffect count excluded blocks.
	DroppedEmpty       int
	DroppedLargeEffect int

	// HasExtra, ExtraInit and Threshold echo the large-effect policy
	// outcome.
	HasExtra  bool
	ExtraInit float64
	Threshold float64

	// AnnotScale holds, per annotation column, the divisor applied by
	// NormalizeAnnot (all ones otherwise). The policy column, appended
	// after normalization, is never scaled.
	AnnotScale []float64

	// Theta0 is the initial parameter vector the optimizer started from.
	Theta0 []float64
}

// Run executes the full pipeline over blocks. Blocks are mutated in place
// (reconciled, possibly annotated, possibly normalized); see the package
// documentation for the stage order.
func Run(blocks []*ldblock.Block, cfg Config) (*Result, error) {
	if len(blocks) == 0 {
		return nil, ErrNoBlocks
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	res := &Result{}
	prepared, err := reconcileAll(blocks, &cfg, res)
	if err != nil {
		return nil, err
	}
	if cfg.NormalizeAnnot {
		res.AnnotScale = normalizeAnnot(prepared, &cfg)
	}

	pol, err := ldblock.ApplyPolicy(prepared, cfg.Policy, cfg.ChiSqThreshold, cfg.SampleSize, cfg.Link)
	if err != nil {
		return nil, err
	}
	res.DroppedEmpty += pol.DroppedEmpty
	res.DroppedLargeEffect = pol.DroppedLargeEffect
	res.HasExtra = pol.HasExtra
	res.ExtraInit = pol.ExtraInit
	res.Threshold = pol.Threshold
	kept := pol.Kept
	if len(kept) == 0 {
		return nil, ErrAllDropped
	}
	res.NumBlocks = len(kept)

	spec := inference.ModelSpec{
		SampleSize:     cfg.SampleSize,
		Link:           cfg.Link,
		InterceptFixed: cfg.InterceptFixed,
		TraceSamples:   cfg.TraceSamples,
		Seed:           cfg.Seed,
	}
	if cfg.InterceptFixed {
		spec.FixedIntercept = cfg.InterceptInit
	}

	theta0, err := initialParams(kept, pol, &spec, &cfg)
	if err != nil {
		return nil, err
	}
	res.Theta0 = append([]float64(nil), theta0...)

	opts := cfg.Newton
	if cfg.Workers > 0 {
		opts.Workers = cfg.Workers
	}
	if opts.Logger == nil {
		opts.Logger = cfg.Logger
	}
	prob := newton.Problem{
		NumBlocks: len(kept),
		NumParams: len(theta0),
		Eval:      blockEval(kept, &spec),
	}
	fit, err := newton.Minimize(prob, theta0, opts)
	if err != nil {
		return nil, fmt.Errorf("estimate: optimize: %w", err)
	}
	res.Fit = fit

	inf, err := inference.Analyze(kept, fit, inference.Config{
		Spec:    spec,
		RefCol:  cfg.RefCol,
		Epsilon: cfg.Epsilon,
		NullFit: cfg.NullFit,
		Workers: cfg.Workers,
		Logger:  cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("estimate: inference: %w", err)
	}
	res.Inference = inf

	return res, nil
}

// reconcileAll validates and reconciles every block. Blocks with no
// annotation overlap become nil slots (counted as dropped by the policy
// stage); any other failure is fatal.
func reconcileAll(blocks []*ldblock.Block, cfg *Config, res *Result) ([]*ldblock.Block, error) {
	out := make([]*ldblock.Block, len(blocks))
	for i, b := range blocks {
		if b == nil {
			continue
		}
		if err := b.ValidateBase(); err != nil {
			return nil, fmt.Errorf("estimate: block %d: %w", i, err)
		}
		proxies, err := b.Reconcile()
		if errors.Is(err, ldblock.ErrNoSumstats) {
			warn(cfg, "dropping block with no annotation overlap", "block", i)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("estimate: block %d: %w", i, err)
		}
		if len(proxies) > 0 {
			res.Proxies = append(res.Proxies, BlockProxies{Block: i, Records: proxies})
			for _, pr := range proxies {
				if pr.R2 == ldblock.DegenerateR2 {
					warn(cfg, "degenerate LD proxy", "block", i, "missing", pr.Missing, "proxy", pr.Proxy)
				}
			}
		}
		out[i] = b
	}

	return out, nil
}

// normalizeAnnot rescales every non-base annotation column by its global
// maximum absolute value across all blocks, in place. Returns the applied
// per-column divisors.
func normalizeAnnot(blocks []*ldblock.Block, cfg *Config) []float64 {
	var kAnnot int
	for _, b := range blocks {
		if b != nil {
			kAnnot = b.NumAnnot()
			break
		}
	}
	if kAnnot == 0 {
		return nil
	}

	scale := make([]float64, kAnnot)
	for j := range scale {
		scale[j] = 1
	}
	for j := 1; j < kAnnot; j++ {
		var maxAbs float64
		for _, b := range blocks {
			if b == nil {
				continue
			}
			rows, _ := b.Annot.Dims()
			for i := 0; i < rows; i++ {
				if v := math.Abs(b.Annot.At(i, j)); v > maxAbs {
					maxAbs = v
				}
			}
		}
		if maxAbs == 0 {
			warn(cfg, "annotation column is identically zero", "column", j)
			continue
		}
		scale[j] = maxAbs
	}

	for _, b := range blocks {
		if b == nil {
			continue
		}
		rows, _ := b.Annot.Dims()
		for j := 1; j < kAnnot; j++ {
			if scale[j] == 1 {
				continue
			}
			for i := 0; i < rows; i++ {
				b.Annot.Set(i, j, b.Annot.At(i, j)/scale[j])
			}
		}
	}

	return scale
}

// initialParams builds theta0: the base coefficient at the link inverse of
// max((mean χ² − 1)/n, floor), the policy column (when present) at the
// threshold-derived value, the free intercept at its configured start.
func initialParams(kept []*ldblock.Block, pol *ldblock.PolicyResult, spec *inference.ModelSpec, cfg *Config) ([]float64, error) {
	kAnnot := kept[0].NumAnnot()
	theta0 := make([]float64, spec.NumParams(kAnnot))

	var sumChi float64
	var m int
	for _, b := range kept {
		for _, z := range b.Z {
			sumChi += z * z
		}
		m += b.NumVariants()
	}
	perVariant := (sumChi/float64(m) - 1) / cfg.SampleSize
	if perVariant < minInitHer {
		perVariant = minInitHer
	}
	base, err := cfg.Link.Inverse(perVariant)
	if err != nil {
		return nil, fmt.Errorf("estimate: base initializer: %w", err)
	}
	theta0[0] = base

	if pol.HasExtra {
		theta0[kAnnot-1] = pol.ExtraInit
	}
	if !cfg.InterceptFixed {
		theta0[len(theta0)-1] = cfg.InterceptInit
	}

	return theta0, nil
}

// blockEval adapts the shared model bridge to the optimizer's contract.
// Objective-only probes skip all derivative work.
func blockEval(kept []*ldblock.Block, spec *inference.ModelSpec) newton.EvalFunc {
	return func(block int, theta []float64, wantDeriv bool) (newton.BlockEval, error) {
		in, err := spec.BlockInput(kept[block], block, theta, false)
		if err != nil {
			return newton.BlockEval{}, err
		}
		if !wantDeriv {
			nll, err := likelihood.Objective(in)
			if err != nil {
				return newton.BlockEval{}, err
			}

			return newton.BlockEval{NLL: nll}, nil
		}
		out, err := likelihood.Evaluate(in)
		if err != nil {
			return newton.BlockEval{}, err
		}

		return newton.BlockEval{NLL: out.NLL, Grad: out.Grad, Hess: out.Hess}, nil
	}
}

func warn(cfg *Config, msg string, args ...any) {
	if cfg.Logger != nil {
		cfg.Logger.Warn(msg, args...)
	}
}
