// Package builder constructs deterministic synthetic LD-block fixtures:
// precision-matrix topologies, annotation layouts, and Z-scores simulated
// under the annotation-partitioned heritability model.
//
// Everything is reproducible by construction: the same precision matrix,
// annotation matrix, parameters, and seed always produce the same block.
// Stochastic draws flow through a seeded PCG source; there are no hidden
// globals.
//
// The package is meant for tests, benchmarks and examples - it is the
// data-generating counterpart of the estimation pipeline, simulating
//
//	z ~ N(0, a·R + n·R·diag(σ²)·R),  R = P⁻¹,  σ²ᵢ = link(aᵢ·θ)
//
// so that estimators can be checked against known ground truth.
//
// Typical use:
//
//	prec := builder.AR1(50, 0.6)
//	annot := builder.Binary(50, []int{0, 1, 2, 3, 4})
//	blk, err := builder.Block(prec, annot, []float64{-9, 2},
//	        builder.WithSampleSize(1e5), builder.WithSeed(7))
package builder
