// SPDX-License-Identifier: MIT
// Package inference: the post-fit analysis engine.

package inference

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/katalvlaran/greml/ldblock"
	"github.com/katalvlaran/greml/likelihood"
	"github.com/katalvlaran/greml/linkfn"
	"github.com/katalvlaran/greml/newton"
)

// Analyze recomputes per-block state once at the converged parameters and
// derives the three covariance estimators, the jackknife record, and
// delta-method heritability/enrichment uncertainty.
//
// The jackknife requires MinJackknifeBlocks blocks and the sandwich two;
// below those counts the corresponding Estimates is nil and a warning is
// logged. The naive estimator is always produced.
func Analyze(blocks []*ldblock.Block, fit *newton.Fit, cfg Config) (*Result, error) {
	if len(blocks) == 0 {
		return nil, ErrNoBlocks
	}
	if fit == nil {
		return nil, ErrNilFit
	}
	if err := cfg.Spec.Validate(); err != nil {
		return nil, err
	}
	kAnnot := blocks[0].NumAnnot()
	if cfg.RefCol < 0 || cfg.RefCol >= kAnnot {
		return nil, ErrBadRef
	}
	eps := cfg.Epsilon
	if eps <= 0 {
		eps = DefaultEpsilon
	}

	nBlocks := len(blocks)
	theta := fit.Params
	p := len(theta)

	outs, err := recompute(blocks, theta, &cfg)
	if err != nil {
		return nil, err
	}

	// Deterministic ascending reduction.
	sumG := make([]float64, p)
	sumH := mat.NewSymDense(p, nil)
	for b := 0; b < nBlocks; b++ {
		floats.Add(sumG, outs[b].Grad)
		sumH.AddSym(sumH, outs[b].Hess)
	}

	st, err := deriveState(blocks, theta, kAnnot, p, &cfg)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Params:       append([]float64(nil), theta...),
		NLL:          fit.NLL,
		Intercept:    cfg.Spec.Intercept(theta),
		Heritability: st.her,
		Counts:       st.counts,
		Enrichment:   st.enrichment(),
	}

	// Jackknife deletions.
	if nBlocks >= MinJackknifeBlocks {
		rec, cov, jkErr := jackknife(blocks, outs, sumG, sumH, theta, eps, &cfg)
		if jkErr != nil {
			return nil, jkErr
		}
		res.JackRec = rec
		res.Jackknife = buildEstimates("jackknife", cov, st)
	} else {
		warn(&cfg, "jackknife skipped: too few blocks", "blocks", nBlocks)
		res.JackRec = nullFitRecord(outs, cfg.NullFit)
	}

	// Naive: pseudo-inverse of the aggregated Fisher information.
	fisher := mat.NewSymDense(p, nil)
	fisher.CopySym(sumH)
	for i := 0; i < p; i++ {
		if fisher.At(i, i) == 0 {
			warn(&cfg, "zero Fisher information, regularizing", "param", i, "epsilon", eps)
			fisher.SetSym(i, i, eps)
		}
	}
	naiveCov, err := pinv(fisher)
	if err != nil {
		return nil, fmt.Errorf("naive covariance: %w", err)
	}
	res.Naive = buildEstimates("naive", naiveCov, st)

	// Sandwich: naive · (B·Cov(g_b)) · naive.
	if nBlocks >= 2 {
		res.Sandwich = buildEstimates("sandwich", sandwich(outs, naiveCov, nBlocks, p), st)
	} else {
		warn(&cfg, "sandwich skipped: too few blocks", "blocks", nBlocks)
	}

	return res, nil
}

// recompute evaluates every block once at theta, in parallel with private
// result slots.
func recompute(blocks []*ldblock.Block, theta []float64, cfg *Config) ([]likelihood.Output, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	outs := make([]likelihood.Output, len(blocks))
	var g errgroup.Group
	g.SetLimit(workers)
	for b := range blocks {
		g.Go(func() error {
			in, err := cfg.Spec.BlockInput(blocks[b], b, theta, cfg.NullFit)
			if err != nil {
				return fmt.Errorf("block %d: %w", b, err)
			}
			out, err := likelihood.Evaluate(in)
			if err != nil {
				return fmt.Errorf("block %d: %w", b, err)
			}
			outs[b] = out

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return outs, nil
}

// jackknife computes the per-block one-step deletion estimates and the
// (B−2)-scaled covariance of the deletion matrix.
func jackknife(blocks []*ldblock.Block, outs []likelihood.Output, sumG []float64, sumH *mat.SymDense, theta []float64, eps float64, cfg *Config) (*JackknifeRecord, *mat.SymDense, error) {
	nBlocks := len(blocks)
	p := len(theta)

	deleted := mat.NewDense(nBlocks, p, nil)
	deletedHer := make([]float64, nBlocks)
	for b := 0; b < nBlocks; b++ {
		a := mat.NewSymDense(p, nil)
		for i := 0; i < p; i++ {
			for j := i; j < p; j++ {
				v := sumH.At(i, j) - outs[b].Hess.At(i, j)
				if i == j {
					v += eps
				}
				a.SetSym(i, j, v)
			}
		}

		rhs := mat.NewVecDense(p, nil)
		for i := 0; i < p; i++ {
			rhs.SetVec(i, outs[b].Grad[i]-sumG[i])
		}

		step, err := solveRegularized(a, rhs, eps, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("jackknife deletion %d: %w", b, err)
		}
		row := make([]float64, p)
		floats.AddTo(row, theta, step)
		deleted.SetRow(b, row)

		h, err := totalHeritability(blocks, row, cfg.Spec.Link)
		if err != nil {
			return nil, nil, err
		}
		deletedHer[b] = h
	}

	cov := mat.NewSymDense(p, nil)
	stat.CovarianceMatrix(cov, deleted, nil)
	scale := float64(nBlocks - 2)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			cov.SetSym(i, j, scale*cov.At(i, j))
		}
	}

	rec := &JackknifeRecord{Deleted: deleted, DeletedHer: deletedHer}
	if cfg.NullFit {
		full := nullFitRecord(outs, true)
		rec.VarScore, rec.VarHess = full.VarScore, full.VarHess
	}

	return rec, cov, nil
}

// nullFitRecord collects per-variant score/Fisher contributions.
func nullFitRecord(outs []likelihood.Output, nullFit bool) *JackknifeRecord {
	rec := &JackknifeRecord{}
	if !nullFit {
		return rec
	}
	rec.VarScore = make([][]float64, len(outs))
	rec.VarHess = make([][]float64, len(outs))
	for b := range outs {
		rec.VarScore[b] = outs[b].VarScore
		rec.VarHess[b] = outs[b].VarHess
	}

	return rec
}

// solveRegularized solves a·x = rhs, escalating the ridge ×10 up to three
// times before falling back to the pseudo-inverse.
func solveRegularized(a *mat.SymDense, rhs *mat.VecDense, eps float64, cfg *Config) ([]float64, error) {
	p := rhs.Len()
	work := mat.NewSymDense(p, nil)
	ridge := 0.0

	for attempt := 0; attempt < 4; attempt++ {
		work.CopySym(a)
		if ridge > 0 {
			for i := 0; i < p; i++ {
				work.SetSym(i, i, work.At(i, i)+ridge)
			}
		}
		var chol mat.Cholesky
		if chol.Factorize(work) {
			x := mat.NewVecDense(p, nil)
			if err := chol.SolveVecTo(x, rhs); err == nil {
				if attempt > 0 {
					warn(cfg, "deletion system needed extra ridge", "ridge", ridge)
				}

				return append([]float64(nil), x.RawVector().Data...), nil
			}
		}
		if ridge == 0 {
			ridge = 10 * eps
		} else {
			ridge *= 10
		}
	}

	warn(cfg, "deletion system singular, using pseudo-inverse")
	pi, err := pinv(a)
	if err != nil {
		return nil, err
	}
	x := mat.NewVecDense(p, nil)
	x.MulVec(pi, rhs)

	return append([]float64(nil), x.RawVector().Data...), nil
}

// sandwich assembles naive · (B·Cov(g_b)) · naive.
func sandwich(outs []likelihood.Output, naive *mat.SymDense, nBlocks, p int) *mat.SymDense {
	gm := mat.NewDense(nBlocks, p, nil)
	for b := 0; b < nBlocks; b++ {
		gm.SetRow(b, outs[b].Grad)
	}
	gcov := mat.NewSymDense(p, nil)
	stat.CovarianceMatrix(gcov, gm, nil)

	meat := mat.NewDense(p, p, nil)
	for i := 0; i < p; i++ {
		for j := 0; j < p; j++ {
			meat.Set(i, j, float64(nBlocks)*gcov.At(i, j))
		}
	}

	var nm, full mat.Dense
	nm.Mul(naive, meat)
	full.Mul(&nm, naive)

	out := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			out.SetSym(i, j, 0.5*(full.At(i, j)+full.At(j, i)))
		}
	}

	return out
}

// totalHeritability sums link values over every annotation row of every
// block.
func totalHeritability(blocks []*ldblock.Block, params []float64, link linkfn.Link) (float64, error) {
	var total float64
	for _, b := range blocks {
		vals, err := linkfn.Values(link, b.Annot, params)
		if err != nil {
			return 0, err
		}
		total += floats.Sum(vals)
	}

	return total, nil
}

func warn(cfg *Config, msg string, args ...any) {
	if cfg.Logger != nil {
		cfg.Logger.Warn(msg, args...)
	}
}
