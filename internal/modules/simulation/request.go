// Package simulation collects user parameters and runs the full pipeline from
// Hamiltonian assembly to an encoded WAV artifact.
package simulation

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"reflect"
	"strings"

	"github.com/aristath/qmusic/internal/modules/audio"
	"github.com/aristath/qmusic/internal/modules/evolution"
	"github.com/aristath/qmusic/internal/modules/field"
	"github.com/aristath/qmusic/internal/modules/hamiltonian"
	"github.com/aristath/qmusic/internal/modules/quantum"
	"github.com/go-playground/validator/v10"
)

// ErrInvalidRequest is returned for requests that fail validation.
var ErrInvalidRequest = errors.New("invalid request")

// Topology names accepted in requests.
const (
	TopologyChain   = "chain"
	TopologyLattice = "lattice"
)

// Initial state modes.
const (
	InitialDefault = "default"
	InitialCustom  = "custom"
	InitialRandom  = "random"
)

// Request carries every user-selected parameter of a run.
type Request struct {
	Topology     string             `json:"topology" validate:"oneof=chain lattice"`
	Qubits       int                `json:"qubits" validate:"min=1,max=4"`
	Duration     float64            `json:"duration" validate:"gte=1"`
	InitialState InitialStateParams `json:"initial_state"`
	Field        FieldParams        `json:"field"`
	Coupling     CouplingParams     `json:"coupling"`
	Noise        NoiseParams        `json:"noise"`
	Decoherence  DecoherenceParams  `json:"decoherence"`
	Observable   string             `json:"observable" validate:"oneof=tensor_y sum_y"`
	Drive        string             `json:"drive" validate:"oneof=collective tensor"`
}

// InitialStateParams selects how the starting state is built.
type InitialStateParams struct {
	Mode       string   `json:"mode" validate:"oneof=default custom random"`
	Amplitudes []string `json:"amplitudes,omitempty"`
	Seed       *uint64  `json:"seed,omitempty"`
}

// FieldParams describes B(t, r). Gradient applies to chains, GradientX/Y to the lattice.
type FieldParams struct {
	B0        float64 `json:"b0"`
	Gradient  float64 `json:"gradient"`
	GradientX float64 `json:"gradient_x"`
	GradientY float64 `json:"gradient_y"`
	Amplitude float64 `json:"amplitude"`
	Frequency float64 `json:"frequency" validate:"gte=0"`
	Waveform  string  `json:"waveform" validate:"oneof=sine square sawtooth"`
	Duty      float64 `json:"duty" validate:"gte=0,lte=1"`
	Width     float64 `json:"width" validate:"gte=0,lte=1"`
}

// CouplingParams scales the ZZ (J) and XX+YY (Exchange) parts of each bond.
type CouplingParams struct {
	J        float64 `json:"j"`
	Exchange float64 `json:"exchange"`
}

// NoiseParams adds Gaussian noise to the field.
type NoiseParams struct {
	Enabled bool    `json:"enabled"`
	Std     float64 `json:"std" validate:"gte=0"`
	Seed    *uint64 `json:"seed,omitempty"`
}

// DecoherenceParams opens the system with a collective decay channel.
type DecoherenceParams struct {
	Enabled bool    `json:"enabled"`
	Rate    float64 `json:"rate" validate:"gte=0"`
}

// DefaultRequest returns the parameters the UI starts with: the first stop of every control
// in the original QMusic app. Decoding JSON on top of it keeps defaults for omitted fields.
func DefaultRequest() Request {
	return Request{
		Topology:     TopologyChain,
		Qubits:       1,
		Duration:     1,
		InitialState: InitialStateParams{Mode: InitialDefault},
		Field: FieldParams{
			B0:        1000,
			Gradient:  100,
			Frequency: 5,
			Waveform:  string(field.WaveSine),
			Duty:      0.1,
			Width:     0.1,
		},
		Coupling:    CouplingParams{J: -20, Exchange: 1},
		Noise:       NoiseParams{Std: 50},
		Decoherence: DecoherenceParams{Rate: 1},
		Observable:  string(hamiltonian.ObservableTensorY),
		Drive:       string(hamiltonian.DriveCollective),
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalize fills empty enum fields with defaults. The lattice always has four sites.
func (r *Request) Normalize() {
	d := DefaultRequest()
	if r.Topology == "" {
		r.Topology = d.Topology
	}
	if r.Topology == TopologyLattice {
		r.Qubits = hamiltonian.SquareLattice().Sites()
	}
	if r.InitialState.Mode == "" {
		r.InitialState.Mode = d.InitialState.Mode
	}
	if r.Field.Waveform == "" {
		r.Field.Waveform = d.Field.Waveform
	}
	if r.Observable == "" {
		r.Observable = d.Observable
	}
	if r.Drive == "" {
		r.Drive = d.Drive
	}
}

// Validate checks the request against its struct tags and the duration limit.
func (r *Request) Validate(maxDuration float64) error {
	if err := validate.Struct(r); err != nil {
		return formatValidationError(err)
	}
	if maxDuration > 0 && r.Duration > maxDuration {
		return fmt.Errorf("%w: duration must be at most %g seconds", ErrInvalidRequest, maxDuration)
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	name := strings.TrimPrefix(e.Namespace(), "Request.")
	switch e.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, e.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", name, e.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", name, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", name)
	}
}

// Layout returns the spin topology of the request.
func (r *Request) Layout() hamiltonian.Topology {
	if r.Topology == TopologyLattice {
		return hamiltonian.SquareLattice()
	}
	return hamiltonian.Chain{N: r.Qubits}
}

// BuildState builds the starting state for the selected mode.
func (r *Request) BuildState() (*quantum.State, error) {
	switch r.InitialState.Mode {
	case InitialCustom:
		return quantum.ParseAmplitudes(r.Qubits, r.InitialState.Amplitudes)
	case InitialRandom:
		return quantum.RandomState(r.Qubits, source(r.InitialState.Seed))
	default:
		return quantum.DefaultState(r.Qubits)
	}
}

// Spec converts the request into a solver run starting from initial.
func (r *Request) Spec(initial *quantum.State) evolution.Spec {
	gradient := hamiltonian.Gradient{X: r.Field.Gradient}
	if r.Topology == TopologyLattice {
		gradient = hamiltonian.Gradient{X: r.Field.GradientX, Y: r.Field.GradientY}
	}

	spec := evolution.Spec{
		Topology:   r.Layout(),
		Couplings:  hamiltonian.Couplings{J: r.Coupling.J, Exchange: r.Coupling.Exchange},
		Gradient:   gradient,
		DriveMode:  hamiltonian.DriveMode(r.Drive),
		Observable: hamiltonian.ObservableKind(r.Observable),
		Field: field.Field{
			Offset:    r.Field.B0,
			Amplitude: r.Field.Amplitude,
			Frequency: r.Field.Frequency,
			Waveform:  field.Waveform(r.Field.Waveform),
			Duty:      r.Field.Duty,
			Width:     r.Field.Width,
		},
		Initial:    initial,
		Duration:   r.Duration,
		SampleRate: audio.SampleRate,
	}

	if r.Noise.Enabled && r.Noise.Std > 0 {
		spec.NoiseStd = r.Noise.Std
		spec.NoiseSource = source(r.Noise.Seed)
	}
	if r.Decoherence.Enabled {
		spec.DecayRate = r.Decoherence.Rate
	}
	return spec
}

// source returns a PCG source for seed, or a randomly seeded one.
func source(seed *uint64) rand.Source {
	if seed == nil {
		return quantum.SeededSource(quantum.NewSeed())
	}
	return quantum.SeededSource(*seed)
}
