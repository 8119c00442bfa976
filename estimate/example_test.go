package estimate_test

import (
	"fmt"

	"github.com/katalvlaran/greml/builder"
	"github.com/katalvlaran/greml/estimate"
	"github.com/katalvlaran/greml/ldblock"
	"github.com/katalvlaran/greml/newton"
)

// ExampleRun fits simulated data with a strongly enriched annotation and
// reads the headline results off the pipeline output.
func ExampleRun() {
	const n = 1e5

	// Three independent LD blocks, AR(1) correlation, first ten variants
	// of each block flagged and carrying most of the heritability.
	flagged := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	blocks := make([]*ldblock.Block, 3)
	for i := range blocks {
		prec, err := builder.AR1(30, 0.5)
		if err != nil {
			fmt.Println("ar1:", err)
			return
		}
		blocks[i], err = builder.Block(
			prec,
			builder.Binary(30, flagged),
			[]float64{-11.5, 4.6},
			builder.WithSampleSize(n),
			builder.WithSeed(uint64(10+i)),
		)
		if err != nil {
			fmt.Println("block:", err)
			return
		}
	}

	res, err := estimate.Run(blocks, estimate.DefaultConfig(n))
	if err != nil {
		fmt.Println("run:", err)
		return
	}

	inf := res.Inference
	fmt.Println("converged:", res.Fit.Status == newton.StatusConverged)
	fmt.Println("blocks fitted:", res.NumBlocks)
	fmt.Println("flagged enrichment > 1:", inf.Enrichment[1] > 1)
	fmt.Println("jackknife available:", inf.Jackknife != nil)

	// Output:
	// converged: true
	// blocks fitted: 3
	// flagged enrichment > 1: true
	// jackknife available: true
}
