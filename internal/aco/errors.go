package aco

import "errors"

var (
	// ErrInvalidDimension is returned by New when the cost matrix is empty
	// or not square.
	ErrInvalidDimension = errors.New("aco: cost matrix is not square")

	// ErrSinkWrite wraps a trace sink write failure. A failed write aborts
	// the iteration in progress.
	ErrSinkWrite = errors.New("aco: trace sink write failed")
)
