package evolution

import "errors"

var (
	// ErrDimensionMismatch is returned when the state, Hamiltonian, collapse or observable
	// operators do not act on the same space.
	ErrDimensionMismatch = errors.New("operator dimensions do not match")
	// ErrUnsupportedOperator is returned for a non-Hermitian static Hamiltonian or a drive
	// operator that is not real diagonal.
	ErrUnsupportedOperator = errors.New("unsupported operator")
	// ErrNonConvergence is returned when the eigensolver fails or the state stops being finite.
	ErrNonConvergence = errors.New("solver did not converge")
	// ErrInvalidTimeGrid is returned for empty, non-finite or non-increasing time grids.
	ErrInvalidTimeGrid = errors.New("invalid time grid")
)
