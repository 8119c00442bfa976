// Package likelihood implements the per-block Gaussian likelihood oracle:
// given a block's Z-scores, its per-variant heritability vector σ² with the
// parameter Jacobian, the block's precision matrix P, the GWAS sample size
// and the intercept, it returns the block's negative log-likelihood
// contribution together with its gradient and a Fisher (Gauss–Newton)
// Hessian.
//
// Model. With R = P⁻¹ the block's LD correlation matrix, Z-scores follow
//
//	z ~ N(0, a·R + n·R·diag(σ²)·R)
//
// where a is the intercept and n the sample size. Working in precision-
// premultiplied space with y = P·z and M(θ) = a·P + n·diag(σ²), the
// covariance collapses to C = R·M·R, so
//
//	nll = ½ (logdet M − 2·logdet P + yᵀM⁻¹y + m·log 2π).
//
// M inherits P's sparsity plus a diagonal, which is what makes per-block
// evaluation cheap; this package factorizes it once per call and derives
// everything else from that factorization.
//
// Derivatives. For annotation parameters, ∂M/∂θₖ = n·diag(Jₖ) with J the
// link Jacobian; for a free intercept, ∂M/∂a = P. The gradient is
// ½(tr(M⁻¹∂M) − uᵀ∂M u) with u = M⁻¹y, and the Hessian is the Fisher form
// ½·tr(M⁻¹∂Mₖ M⁻¹∂Mₗ), positive semidefinite by construction, which is
// exactly what the damped Newton optimizer wants.
//
// Trace estimation. With Input.TraceSamples > 0 the two trace families are
// replaced by Hutchinson estimators over Rademacher probes drawn from a
// deterministic per-block seed; the quadratic (u-based) terms stay exact.
//
// Evaluate is pure, block-local and side-effect-free: same input, same
// output, no shared state, safe to call from any number of goroutines.
package likelihood
