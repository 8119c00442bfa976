// Package greml estimates annotation-partitioned heritability from GWAS
// summary statistics and LD structure encoded as sparse precision matrices,
// one per LD-independent genomic block.
//
// 🚀 What is greml?
//
//	A modular maximum-likelihood engine that brings together:
//		• ldblock/    — LD-block records, index reconciliation & LD-proxy search,
//		  large-effect locus policies
//		• linkfn/     — differentiable link functions mapping annotations to
//		  per-variant heritability (softplus, exponential)
//		• likelihood/ — the per-block Gaussian likelihood kernel: value,
//		  gradient and Fisher Hessian, exact or stochastic-trace estimated
//		• newton/     — a damped / trust-region Newton optimizer with a full
//		  per-iteration trace
//		• inference/  — block-jackknife, sandwich and model-based covariance,
//		  delta-method propagation to heritability & enrichment, p-values
//		• estimate/   — the one-call pipeline tying everything together
//		• builder/    — deterministic synthetic block fixtures for tests,
//		  examples and benchmarks
//
// ✨ Why choose greml?
//
//   - One immutable configuration record - every option enumerated, defaulted
//     and documented in estimate.Config
//   - Rock-solid numerics - gonum linear algebra, explicit regularization
//     fallbacks, deterministic parallel block evaluation
//   - Three covariance estimators (jackknife, sandwich, model-based) computed
//     from the same converged Newton state
//   - Fully testable - every statistical property is exercised by synthetic
//     scenarios built with builder/
//
// Data flow:
//
//	blocks → ldblock.Reconcile → ldblock.ApplyPolicy → newton.Minimize
//	       → inference.Analyze → estimate.Result
//
// Dive into estimate/doc.go for the full configuration reference and into
// the example_test.go files across the packages.
//
//	go get github.com/katalvlaran/greml
package greml
