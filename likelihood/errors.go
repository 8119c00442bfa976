// SPDX-License-Identifier: MIT
// Package likelihood: sentinel error set.

package likelihood

import "errors"

var (
	// ErrDimensionMismatch indicates disagreeing lengths among Z, σ², the
	// Jacobian and the precision matrix.
	ErrDimensionMismatch = errors.New("likelihood: dimension mismatch")

	// ErrBadInput indicates a non-positive sample size or intercept.
	ErrBadInput = errors.New("likelihood: sample size and intercept must be > 0")

	// ErrPrecisionNotPD indicates the block's precision matrix is not
	// positive definite; the block is unusable.
	ErrPrecisionNotPD = errors.New("likelihood: precision matrix not positive definite")

	// ErrModelNotPD indicates M(θ) = a·P + n·diag(σ²) failed to factorize
	// at the current parameters. The optimizer treats this as a rejected
	// candidate, not a fatal condition.
	ErrModelNotPD = errors.New("likelihood: model matrix not positive definite at current parameters")
)
