// SPDX-License-Identifier: MIT
// Package ldblock: index-space reconciliation and LD-proxy search.

package ldblock

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Reconcile - align annotation-space and summary-statistic-space indices
//
// Description:
//
//	GWAS summary statistics and annotation files rarely cover identical
//	variant sets. Reconcile makes the two index spaces agree, per block:
//
//	 1. Compute the canonical (deduplicated) annotation index set.
//	 2. Drop every summary-statistic entry whose index is absent from the
//	    canonical set - from Z and SumstatIdx together.
//	 3. For each canonical index with no summary statistic ("missing"),
//	    find an LD proxy among the present summary-statistic variants:
//	    invert the precision matrix to obtain implied correlations, mask
//	    out other missing variants as candidates (a missing variant never
//	    proxies another), and take the present variant maximizing the
//	    squared correlation r². Substitute the proxy index into the
//	    annotation index set and record (missing, proxy, r²).
//	 4. Sort SumstatIdx ascending and permute Z to match.
//	 5. Rewrite the block into ordinal coordinates: the precision matrix
//	    is subset to the retained variants, SumstatIdx becomes 0..m-1,
//	    AnnotIdx becomes the row→ordinal map, and OrigIdx keeps the
//	    original positions for reporting.
//
// Guarantees:
//   - After Reconcile, aggregating any annotation-row quantity through
//     RowMap onto summary-statistic ordinals is well-defined and total.
//   - Idempotent: re-running on a reconciled block changes nothing and
//     reports no proxies.
//   - A degenerate proxy search (no candidate with a finite, positive-
//     definite correlation) records R2 = DegenerateR2 and falls back to
//     the lowest-index present variant; callers warn, never fail.
//
// Errors:
//   - ErrNoSumstats   — the block retains no summary statistics (drop it).
//   - ErrNilBlock / ErrNilPrecision / ErrDimensionMismatch /
//     ErrIndexOutOfRange — malformed input, detected before any rewrite.
//
// Complexity: O(A + S·log S) bookkeeping plus one m×m inversion when (and
// only when) missing variants exist.
func (b *Block) Reconcile() ([]ProxyRecord, error) {
	if b == nil {
		return nil, ErrNilBlock
	}
	if b.Prec == nil {
		return nil, ErrNilPrecision
	}
	if b.Annot == nil {
		return nil, ErrDimensionMismatch
	}
	rows, _ := b.Annot.Dims()
	if rows != len(b.AnnotIdx) || len(b.Z) != len(b.SumstatIdx) {
		return nil, ErrDimensionMismatch
	}
	m := b.Prec.SymmetricDim()
	for _, idx := range b.AnnotIdx {
		if idx < 0 || idx >= m {
			return nil, ErrIndexOutOfRange
		}
	}
	for _, idx := range b.SumstatIdx {
		if idx < 0 || idx >= m {
			return nil, ErrIndexOutOfRange
		}
	}

	// 1. Canonical annotation index set.
	canonical := make(map[int]struct{}, len(b.AnnotIdx))
	for _, idx := range b.AnnotIdx {
		canonical[idx] = struct{}{}
	}

	// 2. Drop sumstat entries without annotation; dedup keeps first.
	kept := make([]int, 0, len(b.SumstatIdx))
	keptZ := make([]float64, 0, len(b.Z))
	present := make(map[int]struct{}, len(b.SumstatIdx))
	for j, idx := range b.SumstatIdx {
		if _, ok := canonical[idx]; !ok {
			continue
		}
		if _, dup := present[idx]; dup {
			continue
		}
		present[idx] = struct{}{}
		kept = append(kept, idx)
		keptZ = append(keptZ, b.Z[j])
	}
	if len(kept) == 0 {
		return nil, ErrNoSumstats
	}

	// 3. LD-proxy search for canonical indices with no summary statistic.
	missing := make([]int, 0)
	for idx := range canonical {
		if _, ok := present[idx]; !ok {
			missing = append(missing, idx)
		}
	}
	sort.Ints(missing)

	candidates := append([]int(nil), kept...)
	sort.Ints(candidates)

	var proxies []ProxyRecord
	if len(missing) > 0 {
		proxies = b.resolveProxies(missing, candidates)

		// Substitute each missing index with its proxy in annotation space.
		subst := make(map[int]int, len(proxies))
		for k, pr := range proxies {
			subst[missing[k]] = pr.proxyPos
		}
		for i, idx := range b.AnnotIdx {
			if p, ok := subst[idx]; ok {
				b.AnnotIdx[i] = p
			}
		}
	}

	// 4. Sort the sumstat index set ascending, permuting Z alongside.
	order := make([]int, len(kept))
	for j := range order {
		order[j] = j
	}
	sort.Slice(order, func(a, c int) bool { return kept[order[a]] < kept[order[c]] })

	sorted := make([]int, len(kept))
	sortedZ := make([]float64, len(kept))
	pos := make(map[int]int, len(kept))
	for ord, j := range order {
		sorted[ord] = kept[j]
		sortedZ[ord] = keptZ[j]
		pos[kept[j]] = ord
	}

	// 5. Rewrite into ordinal coordinates; all aligned fields move together.
	mz := len(sorted)
	sub := mat.NewSymDense(mz, nil)
	for a := 0; a < mz; a++ {
		for c := a; c < mz; c++ {
			sub.SetSym(a, c, b.Prec.At(sorted[a], sorted[c]))
		}
	}

	orig := make([]int, mz)
	for ord, idx := range sorted {
		if b.OrigIdx != nil {
			orig[ord] = b.OrigIdx[idx]
		} else {
			orig[ord] = idx
		}
	}

	rowMap := make([]int, len(b.AnnotIdx))
	for i, idx := range b.AnnotIdx {
		rowMap[i] = pos[idx]
	}

	b.Prec = sub
	b.Z = sortedZ
	b.OrigIdx = orig
	b.RowMap = rowMap
	b.AnnotIdx = append(b.AnnotIdx[:0], rowMap...)
	b.SumstatIdx = b.SumstatIdx[:0]
	for ord := 0; ord < mz; ord++ {
		b.SumstatIdx = append(b.SumstatIdx, ord)
	}
	b.reconciled = true

	// Report proxies in original coordinates.
	for k := range proxies {
		proxies[k].Proxy = orig[pos[proxies[k].proxyPos]]
	}

	return proxies, nil
}

// resolveProxies picks, for each missing variant, the present variant with
// the largest squared implied correlation r²(j,i) = R²ⱼᵢ/(Rⱼⱼ·Rᵢᵢ), R = P⁻¹.
// Candidates are present variants only, so a missing variant is never
// proxied by another missing one. Degenerate searches (factorization
// failure, non-positive diagonal, non-finite r²) fall back to the lowest
// candidate index with R2 = DegenerateR2.
func (b *Block) resolveProxies(missing, candidates []int) []ProxyRecord {
	m := b.Prec.SymmetricDim()

	var (
		rinv      mat.SymDense
		haveRinv  bool
		sym       = mat.NewSymDense(m, nil)
		chol      mat.Cholesky
		fallbackP = candidates[0]
	)
	sym.CopySym(b.Prec)
	if chol.Factorize(sym) {
		if err := chol.InverseTo(&rinv); err == nil {
			haveRinv = true
		}
	}

	proxies := make([]ProxyRecord, 0, len(missing))
	for _, j := range missing {
		best, bestR2 := -1, math.Inf(-1)
		if haveRinv {
			rjj := rinv.At(j, j)
			if rjj > 0 {
				for _, i := range candidates {
					rii := rinv.At(i, i)
					if rii <= 0 {
						continue
					}
					rji := rinv.At(j, i)
					r2 := rji * rji / (rjj * rii)
					if math.IsNaN(r2) || math.IsInf(r2, 0) {
						continue
					}
					if r2 > bestR2 {
						best, bestR2 = i, r2
					}
				}
			}
		}

		rec := ProxyRecord{Missing: b.originalPos(j), Proxy: best, R2: bestR2, proxyPos: best}
		if best < 0 {
			rec.Proxy = fallbackP
			rec.proxyPos = fallbackP
			rec.R2 = DegenerateR2
		}
		proxies = append(proxies, rec)
	}

	return proxies
}

// originalPos maps a current precision-matrix position to the original one.
func (b *Block) originalPos(idx int) int {
	if b.OrigIdx != nil {
		return b.OrigIdx[idx]
	}

	return idx
}
