// SPDX-License-Identifier: MIT
// Package ldblock: the Block record and its invariant-preserving accessors.

package ldblock

import (
	"gonum.org/v1/gonum/mat"
)

// DegenerateR2 is the sentinel recorded when the LD-proxy search has no
// valid candidate (singular precision submatrix, non-finite correlation).
// Downstream consumers treat it as "proxy of unknown quality" and warn;
// it never participates in any arithmetic.
const DegenerateR2 = -1.0

// Block is one LD-independent genomic region: a sparse symmetric precision
// matrix over the region's unique variants, the index sets tying annotation
// rows and summary-statistic rows to precision-matrix positions, the
// Z-score vector and the annotation matrix (rows = annotation-space
// variants, columns = annotation categories, column 0 ≡ 1).
//
// All fields are filtered and reordered together by Reconcile, never
// independently. After Reconcile the block is read-only to the optimizer
// and the likelihood kernel.
type Block struct {
	// Prec is the precision matrix. Before Reconcile it spans the region's
	// unique variants; afterwards it is the submatrix over retained
	// summary-statistic variants, in ordinal order aligned with Z.
	Prec mat.Symmetric

	// AnnotIdx maps each annotation row to a precision-matrix position
	// (ordinal after Reconcile). len(AnnotIdx) == rows(Annot).
	AnnotIdx []int

	// SumstatIdx maps each Z entry to a precision-matrix position (the
	// identity 0..m-1 after Reconcile). len(SumstatIdx) == len(Z).
	SumstatIdx []int

	// Z holds the per-variant GWAS Z-scores.
	Z []float64

	// Annot is the annotation matrix; column 0 is the constant-1 base.
	Annot *mat.Dense

	// RowMap, built by Reconcile, maps every annotation row to exactly one
	// in-range summary-statistic ordinal (many-to-one, total).
	RowMap []int

	// OrigIdx records, per post-Reconcile ordinal, the original
	// precision-matrix position. Nil before Reconcile.
	OrigIdx []int

	reconciled bool
}

// ProxyRecord reports one LD-proxy resolution: a missing-annotation variant
// (Missing, original precision-matrix position), the present variant chosen
// as its proxy (Proxy, original position), and the squared implied LD
// correlation between them. R2 == DegenerateR2 flags a degenerate search.
type ProxyRecord struct {
	Missing int
	Proxy   int
	R2      float64

	// proxyPos is the proxy's pre-rewrite precision-matrix position, used
	// internally for the annotation-index substitution.
	proxyPos int
}

// Reconciled reports whether Reconcile has run on this block.
func (b *Block) Reconciled() bool { return b != nil && b.reconciled }

// NumVariants returns the number of retained summary-statistic variants.
func (b *Block) NumVariants() int { return len(b.Z) }

// NumAnnot returns the number of annotation columns.
func (b *Block) NumAnnot() int {
	if b == nil || b.Annot == nil {
		return 0
	}
	_, c := b.Annot.Dims()

	return c
}

// MaxChiSq returns the block's maximum squared Z-score, 0 for an empty block.
func (b *Block) MaxChiSq() float64 {
	var maxChi float64
	for _, z := range b.Z {
		if c := z * z; c > maxChi {
			maxChi = c
		}
	}

	return maxChi
}

// LeadVariant returns the ordinal of the highest-χ² variant, -1 when empty.
func (b *Block) LeadVariant() int {
	lead, best := -1, -1.0
	for j, z := range b.Z {
		if c := z * z; c > best {
			best, lead = c, j
		}
	}

	return lead
}

// ValidateBase enforces the fatal precondition that annotation column 0 is
// constant 1 on every row.
func (b *Block) ValidateBase() error {
	if b == nil {
		return ErrNilBlock
	}
	if b.Annot == nil {
		return ErrDimensionMismatch
	}
	rows, _ := b.Annot.Dims()
	for i := 0; i < rows; i++ {
		if b.Annot.At(i, 0) != 1 {
			return ErrBaseColumn
		}
	}

	return nil
}

// Aggregate sums a per-annotation-row quantity onto summary-statistic
// ordinals through RowMap. Well-defined and total for any reconciled block.
func (b *Block) Aggregate(perRow []float64) ([]float64, error) {
	if !b.Reconciled() {
		return nil, ErrNotReconciled
	}
	if len(perRow) != len(b.RowMap) {
		return nil, ErrDimensionMismatch
	}

	out := make([]float64, b.NumVariants())
	for i, ord := range b.RowMap {
		out[ord] += perRow[i]
	}

	return out, nil
}

// AggregateRows row-sums an annotation-row matrix (rows × p) onto
// summary-statistic ordinals, returning an m × p matrix. The matrix analogue
// of Aggregate, used for link-function Jacobians.
func (b *Block) AggregateRows(perRow *mat.Dense) (*mat.Dense, error) {
	if !b.Reconciled() {
		return nil, ErrNotReconciled
	}
	rows, p := perRow.Dims()
	if rows != len(b.RowMap) {
		return nil, ErrDimensionMismatch
	}

	out := mat.NewDense(b.NumVariants(), p, nil)
	for i, ord := range b.RowMap {
		for j := 0; j < p; j++ {
			out.Set(ord, j, out.At(ord, j)+perRow.At(i, j))
		}
	}

	return out, nil
}
