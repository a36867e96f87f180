package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/aristath/qmusic/internal/modules/quantum"
	"github.com/aristath/qmusic/internal/modules/simulation"
)

// Error codes returned in the JSON error body.
const (
	CodeInvalidRequest    = "invalid_request"
	CodeInvalidAmplitude  = "invalid_amplitude"
	CodeMissingAmplitudes = "missing_amplitudes"
	CodeZeroState         = "zero_state"
	CodeSolverFailed      = "solver_failed"
	CodeNotFound          = "not_found"
	CodeCanceled          = "canceled"
	CodeInternal          = "internal_error"
)

// classify maps a service error to an HTTP status and a stable code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, quantum.ErrMissingAmplitudes):
		return http.StatusBadRequest, CodeMissingAmplitudes
	case errors.Is(err, quantum.ErrInvalidAmplitude):
		return http.StatusBadRequest, CodeInvalidAmplitude
	case errors.Is(err, quantum.ErrZeroState):
		return http.StatusBadRequest, CodeZeroState
	case simulation.IsInputError(err):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, simulation.ErrSolverFailed):
		return http.StatusUnprocessableEntity, CodeSolverFailed
	case errors.Is(err, simulation.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, CodeCanceled
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
