// SPDX-License-Identifier: MIT
// Package estimate: sentinel error set.

package estimate

import "errors"

var (
	// ErrNoBlocks indicates an empty input block slice.
	ErrNoBlocks = errors.New("estimate: no blocks")

	// ErrBadConfig indicates an unusable Config (zero sample size, nil
	// link, bad intercept initialization).
	ErrBadConfig = errors.New("estimate: invalid config")

	// ErrAllDropped indicates that reconciliation and the large-effect
	// policy left no block to fit.
	ErrAllDropped = errors.New("estimate: every block was dropped")
)
