// SPDX-License-Identifier: MIT
// Package newton: sentinel error set.

package newton

import "errors"

var (
	// ErrNoBlocks indicates a Problem with zero blocks.
	ErrNoBlocks = errors.New("newton: problem has no blocks")

	// ErrNilEval indicates a Problem without an evaluation function.
	ErrNilEval = errors.New("newton: nil evaluation function")

	// ErrBadOptions indicates an option outside its documented domain
	// (non-positive tolerance, Scalar ≤ 1, bounds out of order, ...).
	ErrBadOptions = errors.New("newton: invalid options")

	// ErrBadStart indicates a starting vector whose length disagrees with
	// Problem.NumParams.
	ErrBadStart = errors.New("newton: starting vector length mismatch")

	// ErrInitialEval indicates the objective could not be evaluated at the
	// starting parameters; there is nothing to iterate from.
	ErrInitialEval = errors.New("newton: initial evaluation failed")
)
