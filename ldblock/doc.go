// Package ldblock defines the LD-block record - the unit of data the whole
// estimation engine operates on - together with the two preparatory stages
// that run exactly once per block before optimization:
//
//   - Reconcile: aligns the annotation-space and summary-statistic-space
//     variant index sets, drops summary statistics with no annotation,
//     resolves missing-annotation variants through an LD-proxy search on the
//     precision matrix, and rewrites the block into a compact ordinal
//     coordinate space in which Z, the precision matrix and the row mapping
//     are structurally aligned.
//
//   - ApplyPolicy: the large-effect locus filter. Driven by a χ² threshold,
//     it drops empty blocks, optionally discards whole over-threshold
//     blocks, or augments the annotation matrix with one extra column
//     flagging large-effect variants (lead-SNP, excess-χ² or whole-block
//     variants) plus one extra initial parameter.
//
// A Block bundles everything that must stay aligned - precision matrix,
// Z-scores, index sets, annotation matrix - so that "filter/reorder
// together, never independently" is guaranteed by construction rather than
// by convention.
//
// Coordinate spaces:
//
//	Before Reconcile, AnnotIdx and SumstatIdx contain positions into the
//	block's precision matrix (the region's unique-variant space). After
//	Reconcile, the block lives in a compact ordinal space: SumstatIdx is
//	0..m-1, AnnotIdx equals RowMap, and OrigIdx records, per ordinal, the
//	original precision-matrix position for reporting. Reconcile is
//	idempotent: a second run changes nothing and reports no proxies.
package ldblock
