// SPDX-License-Identifier: MIT
// Package inference: sentinel error set.

package inference

import "errors"

var (
	// ErrNoBlocks indicates an empty block slice.
	ErrNoBlocks = errors.New("inference: no blocks")

	// ErrNilFit indicates a missing optimizer fit.
	ErrNilFit = errors.New("inference: nil fit")

	// ErrBadRef indicates a reference annotation column outside the
	// annotation matrix.
	ErrBadRef = errors.New("inference: reference column out of range")

	// ErrBadSpec indicates an incomplete ModelSpec (no link, bad sample
	// size).
	ErrBadSpec = errors.New("inference: invalid model spec")

	// ErrSingular indicates a linear system that stayed singular through
	// every regularization fallback.
	ErrSingular = errors.New("inference: singular system")
)
