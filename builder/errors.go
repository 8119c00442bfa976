// SPDX-License-Identifier: MIT
// Package builder: sentinel error set.

package builder

import "errors"

var (
	// ErrBadSize indicates a non-positive variant count.
	ErrBadSize = errors.New("builder: variant count must be positive")

	// ErrBadCorrelation indicates an AR(1) coefficient outside (-1, 1).
	ErrBadCorrelation = errors.New("builder: AR(1) coefficient outside (-1, 1)")

	// ErrDimensionMismatch indicates precision/annotation/parameter shapes
	// that do not line up.
	ErrDimensionMismatch = errors.New("builder: dimension mismatch")

	// ErrNotPositiveDefinite indicates a simulated marginal covariance that
	// failed to factorize.
	ErrNotPositiveDefinite = errors.New("builder: covariance not positive definite")
)
