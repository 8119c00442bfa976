// Package estimate is the front door of the engine: one call runs the
// whole annotation-partitioned heritability pipeline over a set of LD
// blocks.
//
// Run executes, in order:
//
//  1. Base-column validation and per-block reconciliation (ldblock) -
//     blocks whose summary statistics have no annotation overlap are
//     dropped with a warning, LD-proxy substitutions are collected for
//     reporting.
//  2. The large-effect locus policy (ldblock.ApplyPolicy), optionally
//     appending one annotation column and one parameter.
//  3. Optional annotation normalization: every non-base column is divided
//     by its global maximum absolute value across all kept blocks.
//  4. Initialization: the base coefficient starts at the link inverse of
//     the mean-χ² heritability estimate, the intercept (when free) at
//     InterceptInit, and the policy column (when present) at the
//     threshold-derived value.
//  5. Trust-region damped Newton minimization (newton) of the summed
//     per-block negative log-likelihood (likelihood).
//  6. Post-fit inference (inference): jackknife, sandwich and naive
//     covariance, delta-method heritability and enrichment uncertainty.
//
// Blocks are rewritten in place by reconciliation, policy application and
// normalization; callers that need the originals must copy first.
//
// Start from DefaultConfig and override - the zero Config is not usable.
package estimate
