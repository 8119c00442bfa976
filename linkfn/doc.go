// Package linkfn defines the link-function capability used throughout greml:
// a differentiable, invertible map from a linear predictor t = ⟨row, θ⟩ —
// where row is one annotation row and θ the model coefficients — to a
// non-negative per-variant heritability contribution σ²(t).
//
// The capability is deliberately small:
//
//   - Val / Deriv / Deriv2 — value and first/second derivative in t,
//     evaluated per annotation row against the parameter vector.
//   - Inverse             — t such that Val(t) = σ², used to seed initial
//     parameters from a target heritability.
//   - Values / Jacobian   — aggregate forms over an entire annotation
//     matrix, the shapes the likelihood kernel consumes.
//
// Two implementations ship with the package:
//
//   - Softplus — σ²(t) = log(1+eᵗ). The default: smooth, strictly positive,
//     asymptotically linear, numerically tame on both tails.
//   - Exp      — σ²(t) = eᵗ. The classical log link; steeper tails, handy
//     when annotations act multiplicatively.
//
// Both are stateless value types; a Link is safe for concurrent use.
package linkfn
