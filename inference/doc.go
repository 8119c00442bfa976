// Package inference is the post-fit layer: it takes the frozen parameter
// vector from the optimizer and turns it into calibrated uncertainty and
// significance, for the raw coefficients and for the derived quantities
// (per-annotation heritability, enrichment).
//
// Everything flows from one more pass over the blocks at the converged
// parameters, producing per-block gradients and Fisher Hessians. From that
// single state the package computes three covariance estimators:
//
//   - Jackknife: per block b, the one-step Newton approximation to a full
//     leave-that-block-out refit,
//     θ₋ᵦ = θ̂ + (ΣH − Hᵦ + ε·I)⁻¹(gᵦ − Σg),
//     with covariance (B−2)·Cov(θ₋ᵦ). Robust to model misspecification
//     and block heterogeneity; needs at least three blocks.
//
//   - Naive (model-based): the pseudo-inverse of the aggregated Fisher
//     information. Exactly-zero diagonal entries (a parameter the data
//     carry no information about) are regularized with a small additive
//     constant and warned about.
//
//   - Sandwich (Huber–White): naive · (B·Cov(gᵦ)) · naive, combining the
//     model-based curvature with the empirical score variability.
//
// Delta-method propagation carries each covariance into derived space.
// Heritability uses the Jacobian of the summed link values; enrichment
// uses the quotient-rule Jacobian (G·∇hₖ − hₖ·Σ∇h)/G² with G the total
// link value; the reference annotation's enrichment is 1 by definition and
// its variance comes from the raw (non-quotient) gradient sum. Coefficient
// p-values are two-tailed normal tests under each covariance; the
// enrichment test contrasts per-variant heritability of annotation k
// against the reference, hₖ/cₖ − h_ref/c_ref, under the joint covariance.
//
// The package also exports ModelSpec, the bridge that assembles a
// likelihood.Input from a reconciled block and a parameter vector; the
// estimation pipeline uses the same bridge inside the optimizer loop, so
// fitting and inference are guaranteed to see the same model.
package inference
