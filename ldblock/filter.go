// SPDX-License-Identifier: MIT
// Package ldblock: large-effect locus policies.

package ldblock

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/greml/linkfn"
)

// Policy enumerates the large-effect locus policies. Exactly one is active
// per run; dispatch is resolved once, before the optimization loop.
type Policy int

const (
	// PolicyKeep (default): no exclusion beyond empty blocks.
	PolicyKeep Policy = iota

	// PolicyDiscard removes a block entirely when its max χ² exceeds the
	// threshold.
	PolicyDiscard

	// PolicyAnnotateSNP appends one annotation column flagging only the
	// lead (highest-χ²) variant of each over-threshold block with value 1,
	// plus one extra initial parameter derived from the link inverse at
	// the threshold heritability.
	PolicyAnnotateSNP

	// PolicyAnnotateSNPLinear is PolicyAnnotateSNP with the flag set to the
	// excess χ² above the threshold instead of 1.
	PolicyAnnotateSNPLinear

	// PolicyAnnotateBlock flags every variant of an over-threshold block
	// with value 1 rather than only the lead variant.
	PolicyAnnotateBlock
)

// String implements fmt.Stringer.
func (p Policy) String() string {
	switch p {
	case PolicyKeep:
		return "keep"
	case PolicyDiscard:
		return "discard"
	case PolicyAnnotateSNP:
		return "annotateSNP"
	case PolicyAnnotateSNPLinear:
		return "annotateSNP_linear"
	case PolicyAnnotateBlock:
		return "annotateBlock"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// appendsColumn reports whether the policy augments the annotation matrix.
func (p Policy) appendsColumn() bool {
	return p == PolicyAnnotateSNP || p == PolicyAnnotateSNPLinear || p == PolicyAnnotateBlock
}

// DefaultThreshold returns the default large-effect χ² threshold,
// max(sampleSize·0.001, 80).
func DefaultThreshold(sampleSize float64) float64 {
	if t := sampleSize * 1e-3; t > 80 {
		return t
	}

	return 80
}

// PolicyResult is the outcome of applying a large-effect policy.
type PolicyResult struct {
	// Kept holds the retained blocks, in input order.
	Kept []*Block

	// DroppedEmpty counts blocks removed for having no summary statistics.
	DroppedEmpty int

	// DroppedLargeEffect counts blocks removed by PolicyDiscard.
	DroppedLargeEffect int

	// ExtraColumn holds, per kept block, the appended annotation column
	// (the output artifact of the annotate policies). Nil for keep/discard.
	ExtraColumn [][]float64

	// ExtraInit is the initial value of the one appended parameter.
	// Meaningful only when HasExtra.
	ExtraInit float64

	// HasExtra reports whether exactly one parameter was appended.
	HasExtra bool

	// Threshold is the χ² threshold that was applied.
	Threshold float64
}

// ApplyPolicy runs the large-effect locus filter over reconciled blocks.
//
// Blocks with no summary statistics are always dropped. threshold ≤ 0
// selects DefaultThreshold(sampleSize). The annotate policies append
// exactly one annotation column to every kept block (zero where nothing is
// flagged) and one initial parameter link.Inverse(threshold/sampleSize), so
// the parameter vector length stays consistent across the whole run.
//
// Errors: ErrUnknownPolicy; ErrNeedLink when an annotate policy is applied
// without a link; ErrNotReconciled for unreconciled blocks.
func ApplyPolicy(blocks []*Block, pol Policy, threshold, sampleSize float64, link linkfn.Link) (*PolicyResult, error) {
	if pol < PolicyKeep || pol > PolicyAnnotateBlock {
		return nil, ErrUnknownPolicy
	}
	if pol.appendsColumn() && link == nil {
		return nil, ErrNeedLink
	}
	if threshold <= 0 {
		threshold = DefaultThreshold(sampleSize)
	}

	res := &PolicyResult{Threshold: threshold}
	for _, b := range blocks {
		if b == nil || b.NumVariants() == 0 {
			res.DroppedEmpty++
			continue
		}
		if !b.Reconciled() {
			return nil, ErrNotReconciled
		}
		if pol == PolicyDiscard && b.MaxChiSq() > threshold {
			res.DroppedLargeEffect++
			continue
		}
		res.Kept = append(res.Kept, b)
	}

	if !pol.appendsColumn() {
		return res, nil
	}

	res.HasExtra = true
	res.ExtraColumn = make([][]float64, len(res.Kept))
	for k, b := range res.Kept {
		res.ExtraColumn[k] = extraColumn(b, pol, threshold)
		appendAnnotColumn(b, res.ExtraColumn[k])
	}

	init, err := link.Inverse(threshold / sampleSize)
	if err != nil {
		return nil, fmt.Errorf("ApplyPolicy: threshold heritability: %w", err)
	}
	res.ExtraInit = init

	return res, nil
}

// extraColumn builds the per-annotation-row flag column for one block.
func extraColumn(b *Block, pol Policy, threshold float64) []float64 {
	col := make([]float64, len(b.RowMap))
	maxChi := b.MaxChiSq()
	if maxChi <= threshold {
		return col
	}

	switch pol {
	case PolicyAnnotateBlock:
		for i := range col {
			col[i] = 1
		}
	case PolicyAnnotateSNP, PolicyAnnotateSNPLinear:
		lead := b.LeadVariant()
		val := 1.0
		if pol == PolicyAnnotateSNPLinear {
			val = maxChi - threshold
		}
		for i, ord := range b.RowMap {
			if ord == lead {
				col[i] = val
			}
		}
	}

	return col
}

// appendAnnotColumn widens the block's annotation matrix by one column.
func appendAnnotColumn(b *Block, col []float64) {
	rows, cols := b.Annot.Dims()
	wide := mat.NewDense(rows, cols+1, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			wide.Set(i, j, b.Annot.At(i, j))
		}
		wide.Set(i, cols, col[i])
	}
	b.Annot = wide
}
