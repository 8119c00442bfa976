// Package newton drives the model coefficients to a likelihood maximum
// (equivalently, a negative-log-likelihood minimum) with a damped Newton
// method under adaptive trust-region step control.
//
// The optimizer knows nothing about genetics: it sees a Problem - a block
// count, a parameter count and a pure per-block evaluation function - and
// owns the only mutable state of a run, the parameter vector and the
// iteration history.
//
// One outer iteration:
//
//  1. Aggregate: evaluate every block at the current parameters and sum
//     objective, gradient and Hessian. Blocks are statistically and
//     computationally independent, so evaluation fans out over an errgroup
//     worker pool; each worker writes a private per-block slot and the
//     final reduction always runs in ascending block index, keeping
//     floating-point summation bitwise reproducible regardless of worker
//     count.
//
//  2. Step search. With the trust region enabled (default), up to InnerMax
//     candidate steps are tried: solve the damped system
//     (H + λ·diag(H) + (λ‖g‖ + tiny·mean|diag H|)·I)·s = −g,
//     probe the candidate objective, and score it with
//     ρ = |Δactual/Δpredicted| against the local quadratic model. A
//     worsened objective - or, when GradCheck is on, a gradient norm that
//     more than doubled - rejects the candidate outright (ρ = −1). Accept
//     when ρ > RhoLower; shrink the region (λ ×= Scalar) below the bound,
//     expand it (λ /= Scalar) above RhoUpper. An exhausted search falls
//     back to the last candidate iff its ρ still clears RhoLower,
//     otherwise the parameters stay put for this outer iteration and
//     optimization continues.
//
//     Without the trust region, a fixed-ridge damped step is retried with
//     doubled λ while the objective worsens, up to MaxRetries (the
//     unbounded retry of the classical scheme is deliberately capped).
//
//  3. Converge. After MinIter iterations, stop as soon as the objective
//     improved by less than MinIter·Tol over the last MinIter iterations;
//     a hard MaxIter cap bounds the run. Wall-clock time is recorded in
//     the trace, never enforced.
//
// Every outer iteration appends an Iteration record - parameters,
// objective, gradient, penalty, and the aggregation/search timing split -
// so a run can be replayed and diagnosed offline.
package newton
