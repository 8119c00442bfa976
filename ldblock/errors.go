// SPDX-License-Identifier: MIT
// Package ldblock: sentinel error set (unified, consistent).
// All operations return these sentinels and tests check them via errors.Is.
// Wrap with fmt.Errorf("ctx: %w", ErrX) at outer boundaries when context is
// essential; errors.Is still matches.

package ldblock

import "errors"

var (
	// ErrNilBlock indicates a nil *Block receiver or argument.
	ErrNilBlock = errors.New("ldblock: nil block")

	// ErrNilPrecision indicates a block without a precision matrix.
	ErrNilPrecision = errors.New("ldblock: nil precision matrix")

	// ErrBaseColumn signals the fatal precondition violation: annotation
	// column 0 must be constant 1 on every row. Checked before any
	// computation; never recovered from.
	ErrBaseColumn = errors.New("ldblock: annotation column 0 must be constant 1")

	// ErrDimensionMismatch indicates disagreeing lengths among Z, index sets,
	// annotation rows and the precision matrix.
	ErrDimensionMismatch = errors.New("ldblock: dimension mismatch")

	// ErrIndexOutOfRange indicates an index set entry outside the precision
	// matrix.
	ErrIndexOutOfRange = errors.New("ldblock: index outside precision matrix")

	// ErrNoSumstats is reported by Reconcile when a block retains no summary
	// statistics; the pipeline drops such blocks silently.
	ErrNoSumstats = errors.New("ldblock: block has no summary statistics")

	// ErrNotReconciled indicates an operation that requires a reconciled
	// block (Aggregate, ApplyPolicy) was called too early.
	ErrNotReconciled = errors.New("ldblock: block not reconciled")

	// ErrNeedLink indicates an annotate policy was applied without a link
	// function to derive the extra initial parameter from.
	ErrNeedLink = errors.New("ldblock: annotate policy requires a link function")

	// ErrUnknownPolicy indicates a Policy value outside the enumerated set.
	ErrUnknownPolicy = errors.New("ldblock: unknown large-effect policy")
)
