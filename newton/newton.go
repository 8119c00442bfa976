// SPDX-License-Identifier: MIT
// Package newton: the optimizer loop.

package newton

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Minimize runs damped/trust-region Newton iteration from theta0 and
// returns the converged fit. theta0 is not mutated; the returned Fit owns
// its own copies.
//
// Errors:
//   - ErrNoBlocks / ErrNilEval / ErrBadStart / ErrBadOptions — malformed
//     problem or configuration.
//   - ErrInitialEval (wrapped) — the starting point is not evaluable.
//
// A candidate step failing to evaluate mid-run is NOT an error: it is a
// rejected candidate, the trust region shrinks, and iteration continues.
func Minimize(p Problem, theta0 []float64, opts Options) (*Fit, error) {
	if p.NumBlocks < 1 {
		return nil, ErrNoBlocks
	}
	if p.Eval == nil {
		return nil, ErrNilEval
	}
	if len(theta0) != p.NumParams {
		return nil, ErrBadStart
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	theta := append([]float64(nil), theta0...)

	nll, grad, hess, err := aggregate(p, theta, true, opts.workers())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitialEval, err)
	}

	fit := &Fit{Status: StatusIterating}
	hist := []float64{nll}
	lambda := opts.InitPenalty

	for iter := 1; iter <= opts.MaxIter; iter++ {
		searchStart := time.Now()

		var accepted bool
		if opts.TrustRegion {
			theta, nll, lambda, accepted = trustStep(p, &opts, theta, nll, grad, hess, lambda)
		} else {
			theta, nll, accepted = plainStep(p, &opts, theta, nll, grad, hess)
		}
		searchSecs := time.Since(searchStart).Seconds()

		// Re-aggregate derivatives at the (possibly unchanged) iterate.
		aggStart := time.Now()
		if accepted {
			var aggErr error
			nll, grad, hess, aggErr = aggregate(p, theta, true, opts.workers())
			if aggErr != nil {
				// The accepted candidate evaluated moments ago; a failure
				// here is a genuine fault, not a rejectable step.
				return nil, fmt.Errorf("newton: re-aggregation at iteration %d: %w", iter, aggErr)
			}
		}
		aggSecs := time.Since(aggStart).Seconds()

		fit.Iterations = append(fit.Iterations, Iteration{
			Index:         iter,
			Params:        append([]float64(nil), theta...),
			NLL:           nll,
			Grad:          append([]float64(nil), grad...),
			GradNorm:      floats.Norm(grad, 2),
			Penalty:       lambda,
			Accepted:      accepted,
			AggSeconds:    aggSecs,
			SearchSeconds: searchSecs,
		})

		hist = append(hist, nll)
		if iter >= opts.MinIter {
			improved := hist[len(hist)-1-opts.MinIter] - nll
			if improved < float64(opts.MinIter)*opts.Tol {
				fit.Status = StatusConverged
				break
			}
		}
	}
	if fit.Status != StatusConverged {
		fit.Status = StatusMaxIters
	}

	fit.Params = theta
	fit.NLL = nll
	fit.Grad = grad
	fit.Hess = hess
	fit.Elapsed = time.Since(start)

	return fit, nil
}

// trustStep runs one trust-region step search. Returns the (possibly
// unchanged) iterate, its objective, the updated penalty and whether a
// candidate was taken.
func trustStep(p Problem, opts *Options, theta []float64, nll float64, grad []float64, hess *mat.SymDense, lambda float64) ([]float64, float64, float64, bool) {
	if opts.ResetPenalty {
		lambda = opts.InitPenalty
	}
	gnorm := floats.Norm(grad, 2)

	var (
		lastCand []float64
		lastNLL  float64
		lastRho  = math.Inf(-1)
	)
	for attempt := 0; attempt < opts.InnerMax; attempt++ {
		step, ok := solveDamped(hess, grad, lambda, gnorm)
		if !ok {
			lambda *= opts.Scalar
			continue
		}

		cand := make([]float64, len(theta))
		floats.AddTo(cand, theta, step)

		rho := -1.0
		candNLL, candGrad, err := probe(p, opts, cand)
		if err == nil && candNLL <= nll {
			if pred := predictedDelta(grad, hess, step); pred != 0 {
				rho = math.Abs((candNLL - nll) / pred)
			}
			if opts.GradCheck && floats.Norm(candGrad, 2) > 2*gnorm {
				rho = -1
			}
		}

		lastCand, lastNLL, lastRho = cand, candNLL, rho
		if rho > opts.RhoLower {
			if rho > opts.RhoUpper {
				lambda /= opts.Scalar
			}

			return cand, candNLL, lambda, true
		}
		lambda *= opts.Scalar
	}

	// Exhausted: fall back to the last candidate iff its ρ still clears
	// the lower bound; otherwise hold position this outer iteration.
	if lastRho > opts.RhoLower {
		return lastCand, lastNLL, lambda, true
	}
	if opts.Logger != nil {
		opts.Logger.Warn("trust-region search exhausted, parameters unchanged",
			"attempts", opts.InnerMax, "penalty", lambda)
	}

	return theta, nll, lambda, false
}

// plainStep is the non-trust-region damped Newton step with λ-doubling
// retries, capped at MaxRetries.
func plainStep(p Problem, opts *Options, theta []float64, nll float64, grad []float64, hess *mat.SymDense) ([]float64, float64, bool) {
	lambda := opts.InitPenalty
	if lambda <= 0 {
		lambda = DefaultInitPenalty
	}

	for retry := 0; retry <= opts.MaxRetries; retry++ {
		step, ok := solveDamped(hess, grad, lambda, 0)
		if ok {
			cand := make([]float64, len(theta))
			floats.AddTo(cand, theta, step)
			if candNLL, _, err := probe(p, opts, cand); err == nil && candNLL < nll {
				return cand, candNLL, true
			}
		}
		lambda *= 2
	}
	if opts.Logger != nil {
		opts.Logger.Warn("damped Newton retries exhausted, parameters unchanged",
			"retries", opts.MaxRetries)
	}

	return theta, nll, false
}

// probe evaluates a candidate: objective always, gradient only under
// GradCheck.
func probe(p Problem, opts *Options, cand []float64) (float64, []float64, error) {
	nll, grad, _, err := aggregate(p, cand, opts.GradCheck, opts.workers())

	return nll, grad, err
}

// solveDamped solves (H + λ·diag(H) + (λ·gnorm + tiny·mean|diag H|)·I)s = −g.
// The λ·gnorm ridge keeps the system nonsingular when a parameter carries
// no curvature (zero Fisher information).
func solveDamped(hess *mat.SymDense, grad []float64, lambda, gnorm float64) ([]float64, bool) {
	n := len(grad)
	var meanDiag float64
	for i := 0; i < n; i++ {
		meanDiag += math.Abs(hess.At(i, i))
	}
	meanDiag /= float64(n)
	ridge := lambda*gnorm + tinyRidge*meanDiag

	damped := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := hess.At(i, j)
			if i == j {
				v += lambda*hess.At(i, i) + ridge
			}
			damped.SetSym(i, j, v)
		}
	}

	var chol mat.Cholesky
	if !chol.Factorize(damped) {
		return nil, false
	}

	rhs := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		rhs.SetVec(i, -grad[i])
	}
	step := mat.NewVecDense(n, nil)
	if err := chol.SolveVecTo(step, rhs); err != nil {
		return nil, false
	}

	out := make([]float64, n)
	copy(out, step.RawVector().Data)

	return out, true
}

// predictedDelta is the local quadratic model's objective change
// gᵀs + ½sᵀHs for step s (negative for a descent step).
func predictedDelta(grad []float64, hess *mat.SymDense, step []float64) float64 {
	n := len(grad)
	delta := floats.Dot(grad, step)
	for i := 0; i < n; i++ {
		var hs float64
		for j := 0; j < n; j++ {
			hs += hess.At(i, j) * step[j]
		}
		delta += 0.5 * step[i] * hs
	}

	return delta
}

// aggregate fans block evaluation out over an errgroup pool and reduces in
// ascending block index for numerical reproducibility. Each worker writes
// only its private slot; the reduction is the lone synchronization point.
func aggregate(p Problem, theta []float64, wantDeriv bool, workers int) (float64, []float64, *mat.SymDense, error) {
	evals := make([]BlockEval, p.NumBlocks)

	var g errgroup.Group
	g.SetLimit(workers)
	for b := 0; b < p.NumBlocks; b++ {
		g.Go(func() error {
			out, err := p.Eval(b, theta, wantDeriv)
			if err != nil {
				return fmt.Errorf("block %d: %w", b, err)
			}
			evals[b] = out

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, nil, nil, err
	}

	var nll float64
	grad := make([]float64, p.NumParams)
	var hess *mat.SymDense
	if wantDeriv {
		hess = mat.NewSymDense(p.NumParams, nil)
	}
	for b := 0; b < p.NumBlocks; b++ {
		nll += evals[b].NLL
		if !wantDeriv {
			continue
		}
		floats.Add(grad, evals[b].Grad)
		hess.AddSym(hess, evals[b].Hess)
	}

	return nll, grad, hess, nil
}
