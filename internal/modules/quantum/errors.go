package quantum

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidAmplitude is returned when an amplitude entry is not a finite complex number.
	ErrInvalidAmplitude = errors.New("invalid amplitude")
	// ErrMissingAmplitudes is returned when some basis coefficients were left empty.
	ErrMissingAmplitudes = errors.New("did you forget to enter some of the coefficients")
	// ErrZeroState is returned when an amplitude vector has zero norm and cannot be normalised.
	ErrZeroState = errors.New("state vector has zero norm")
	// ErrQubitCount is returned for qubit counts outside 1..MaxQubits.
	ErrQubitCount = errors.New("unsupported number of qubits")
)

// AmplitudeError reports which basis coefficient failed to parse.
type AmplitudeError struct {
	Index int
	Label string
	Text  string
}

func (e *AmplitudeError) Error() string {
	return fmt.Sprintf("invalid amplitude a_%s: %q", e.Label, e.Text)
}

func (e *AmplitudeError) Unwrap() error {
	return ErrInvalidAmplitude
}

// MissingAmplitudesError lists the basis labels whose coefficients are empty.
type MissingAmplitudesError struct {
	Labels []string
}

func (e *MissingAmplitudesError) Error() string {
	return fmt.Sprintf("%s: missing a_%s", ErrMissingAmplitudes, strings.Join(e.Labels, ", a_"))
}

func (e *MissingAmplitudesError) Unwrap() error {
	return ErrMissingAmplitudes
}
