// SPDX-License-Identifier: MIT
// Package linkfn: scalar link kernels and aggregate forms.
//
// Contract (strict):
//   - ValT MUST be finite and ≥ 0 for every finite t.
//   - DerivT/Deriv2T are derivatives in the linear predictor t, not in θ;
//     chain-rule expansion into θ-space happens in Jacobian below.
//   - Inverse(ValT(t)) ≈ t for t in the numerically representable range.
//   - Implementations are stateless value types, safe for concurrent use.

package linkfn

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// expClamp bounds the argument of math.Exp so aggregate evaluation never
// produces ±Inf; beyond it softplus is linear and exp saturates.
const expClamp = 35.0

// Link is the per-variant heritability link capability: a smooth map from
// the linear predictor t = ⟨row, θ⟩ to σ²(t) ≥ 0, with two derivatives and
// an inverse.
type Link interface {
	// ValT returns σ²(t).
	ValT(t float64) float64
	// DerivT returns dσ²/dt.
	DerivT(t float64) float64
	// Deriv2T returns d²σ²/dt².
	Deriv2T(t float64) float64
	// Inverse returns t with ValT(t) = sigma2, or ErrNonPositive.
	Inverse(sigma2 float64) (float64, error)
	// Name reports a short identifier used in logs and traces.
	Name() string
}

// Softplus is σ²(t) = log(1+eᵗ): strictly positive, asymptotically linear.
// The package default.
type Softplus struct{}

// Exp is σ²(t) = eᵗ, the classical log link.
type Exp struct{}

// ValT returns log(1+eᵗ), switching to the linear asymptote for large t.
func (Softplus) ValT(t float64) float64 {
	if t > expClamp {
		return t
	}

	return math.Log1p(math.Exp(t))
}

// DerivT returns the logistic sigmoid 1/(1+e⁻ᵗ).
func (Softplus) DerivT(t float64) float64 {
	return 1.0 / (1.0 + math.Exp(-t))
}

// Deriv2T returns s(t)·(1−s(t)) with s the sigmoid.
func (sp Softplus) Deriv2T(t float64) float64 {
	s := sp.DerivT(t)

	return s * (1.0 - s)
}

// Inverse returns log(eʸ−1) for y > 0; for large y the identity asymptote.
func (Softplus) Inverse(sigma2 float64) (float64, error) {
	if sigma2 <= 0 {
		return 0, ErrNonPositive
	}
	if sigma2 > expClamp {
		return sigma2, nil
	}

	return math.Log(math.Expm1(sigma2)), nil
}

// Name implements Link.
func (Softplus) Name() string { return "softplus" }

// ValT returns eᵗ, clamped to avoid overflow in aggregate evaluation.
func (Exp) ValT(t float64) float64 {
	if t > expClamp {
		t = expClamp
	}

	return math.Exp(t)
}

// DerivT equals ValT for the exponential link.
func (e Exp) DerivT(t float64) float64 { return e.ValT(t) }

// Deriv2T equals ValT for the exponential link.
func (e Exp) Deriv2T(t float64) float64 { return e.ValT(t) }

// Inverse returns log(sigma2) for sigma2 > 0.
func (Exp) Inverse(sigma2 float64) (float64, error) {
	if sigma2 <= 0 {
		return 0, ErrNonPositive
	}

	return math.Log(sigma2), nil
}

// Name implements Link.
func (Exp) Name() string { return "exp" }

// Predictor returns t = ⟨row, θ⟩ using the leading len(row) coefficients of
// theta; a trailing free-intercept entry never participates in the link.
func Predictor(row, theta []float64) (float64, error) {
	if len(row) > len(theta) {
		return 0, ErrDimensionMismatch
	}

	return floats.Dot(row, theta[:len(row)]), nil
}

// Val evaluates σ² for one annotation row against θ.
func Val(l Link, row, theta []float64) (float64, error) {
	t, err := Predictor(row, theta)
	if err != nil {
		return 0, err
	}

	return l.ValT(t), nil
}

// Values evaluates σ² for every row of the annotation matrix. The returned
// slice has one entry per annotation row, in row order.
func Values(l Link, annot mat.Matrix, theta []float64) ([]float64, error) {
	rows, cols := annot.Dims()
	if cols > len(theta) {
		return nil, ErrDimensionMismatch
	}

	out := make([]float64, rows)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, annot)
		out[i] = l.ValT(floats.Dot(row, theta[:cols]))
	}

	return out, nil
}

// Jacobian returns the rows×nParams matrix J with J[i][j] = ∂σ²ᵢ/∂θⱼ =
// DerivT(tᵢ)·annot[i][j]. Columns beyond the annotation width (a trailing
// free-intercept parameter) are identically zero: the intercept enters the
// likelihood directly, not through the link.
func Jacobian(l Link, annot mat.Matrix, theta []float64, nParams int) (*mat.Dense, error) {
	rows, cols := annot.Dims()
	if cols > nParams || cols > len(theta) {
		return nil, ErrDimensionMismatch
	}

	jac := mat.NewDense(rows, nParams, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, annot)
		d := l.DerivT(floats.Dot(row, theta[:cols]))
		for j := 0; j < cols; j++ {
			jac.Set(i, j, d*row[j])
		}
	}

	return jac, nil
}
