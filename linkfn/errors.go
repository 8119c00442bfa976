// SPDX-License-Identifier: MIT
// Package linkfn: sentinel error set.
// All public operations return these sentinels; tests match via errors.Is.

package linkfn

import "errors"

var (
	// ErrNonPositive is returned by Inverse when the target heritability is
	// not strictly positive; every link in this package maps onto (0, +∞).
	ErrNonPositive = errors.New("linkfn: inverse target must be > 0")

	// ErrDimensionMismatch indicates that an annotation row and the parameter
	// vector disagree in length (row longer than the coefficient block).
	ErrDimensionMismatch = errors.New("linkfn: row/parameter dimension mismatch")
)
